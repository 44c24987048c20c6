package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arthur-debert/confstage/config"
	"github.com/arthur-debert/confstage/format"
	"github.com/arthur-debert/confstage/store"
)

// ErrNotFound marks a register construction that found no data in any
// reachable stage without a force-exists override.
var ErrNotFound = errors.New("configuration not found")

const (
	// BaseStage is the implicit source stage reading YAML documents
	// from the conf path.
	BaseStage = "base"

	datetimeLayout = "2006-01-02 15:04:05"
	versionLayout  = "v%m.%n.%c"

	domainPartition = ":"
)

// excludeKeys are the volatile payload keys left out of the content
// hash and the diff.
var excludeKeys = map[string]bool{"version": true, "update_time": true}

// Register is one named configuration document bound to a stage. On
// construction it loads the latest data from the stage, diffs it
// against the stored metadata record and, unless auto update is off,
// writes back the hash and the bumped version.
type Register struct {
	name    string
	domain  string
	environ Environment

	params     *config.Params
	stage      string
	author     string
	autoUpdate bool
	archive    bool

	data       map[string]any
	dataHash   map[string]any
	diffLevel  int
	updateTime time.Time

	meta   *store.Metadata
	audit  *store.AuditLog
	logger *zap.Logger
}

// Option adjusts register construction.
type Option func(*registerOptions)

type registerOptions struct {
	stage       string
	author      string
	autoUpdate  bool
	forceExists bool
	logger      *zap.Logger
}

// WithStage loads the register from a configured stage instead of
// base.
func WithStage(stage string) Option {
	return func(o *registerOptions) { o.stage = stage }
}

// WithAuthor records the author on metadata and audit records.
func WithAuthor(author string) Option {
	return func(o *registerOptions) { o.author = author }
}

// WithoutAutoUpdate skips the metadata write-back on construction.
func WithoutAutoUpdate() Option {
	return func(o *registerOptions) { o.autoUpdate = false }
}

// WithForceExists accepts a register with no data in the stage.
func WithForceExists() Option {
	return func(o *registerOptions) { o.forceExists = true }
}

// WithRegisterLogger sets the process logger.
func WithRegisterLogger(logger *zap.Logger) Option {
	return func(o *registerOptions) { o.logger = logger }
}

// New constructs a register for a fullname, "<domain>:<name>" or bare
// "<name>". The data comes from the requested stage, base by default;
// an empty result without WithForceExists is ErrNotFound.
func New(params *config.Params, fullname string, opts ...Option) (*Register, error) {
	options := registerOptions{autoUpdate: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	name := strings.Join(strings.Fields(fullname), "")
	domain := ""
	if idx := strings.LastIndex(name, domainPartition); idx >= 0 {
		domain, name = name[:idx], name[idx+1:]
	}
	name = strings.ToLower(name)
	if strings.ContainsAny(name, ",.") {
		return nil, fmt.Errorf(
			"%w: the name of configuration should not contain comma or dot characters",
			config.ErrArgument,
		)
	}
	if domain != "" {
		if !params.Engine.ConfigDomain {
			return nil, fmt.Errorf(
				"%w: the key config_domain was not set in the engine settings",
				config.ErrArgument,
			)
		}
		domain = strings.ToLower(strings.TrimRight(strings.ReplaceAll(domain, "\\", "/"), "/"))
	}
	if options.stage != "" && options.stage != BaseStage && !params.Has(options.stage) {
		return nil, fmt.Errorf("%w: cannot get stage %q because it is not configured",
			config.ErrArgument, options.stage)
	}

	environ, err := NewEnvironment(params.Engine)
	if err != nil {
		return nil, err
	}

	r := &Register{
		name:       name,
		domain:     domain,
		environ:    environ,
		params:     params,
		stage:      options.stage,
		author:     options.author,
		autoUpdate: options.autoUpdate,
		archive:    params.Engine.ConfigStageArchive,
		updateTime: time.Now(),
		logger:     options.logger,
	}

	r.data, err = r.Pick(r.Stage(), 1, false)
	if err != nil {
		return nil, err
	}
	exclude := r.excluded(r.Stage())
	if len(r.data) == 0 && !options.forceExists {
		detail := ""
		if r.domain != "" {
			detail = fmt.Sprintf(" with domain %q", r.domain)
		}
		return nil, fmt.Errorf(
			"%w: configuration %q%s in stage %q", ErrNotFound, r.name, detail, r.Stage(),
		)
	}

	r.meta, err = store.NewMetadata(params.Engine.ConfigMetadata, r.name, r.environ.Name(), r.logger)
	if err != nil {
		return nil, err
	}
	r.audit, err = store.NewAuditLog(
		params.Engine.ConfigLogging, r.name, r.environ.Name(), r.Author(), r.logger,
	)
	if err != nil {
		return nil, err
	}

	hashed, _ := HashData(r.data, exclude).(map[string]any)
	r.dataHash = hashed

	meta, err := r.Metadata()
	if err != nil {
		return nil, err
	}
	r.diffLevel = CompareData(r.dataHash, stageRecord(meta, r.Stage()), exclude)

	if r.archive {
		r.audit.Debug("archive mode is set, purged files move to the archive path first")
	}

	if err := r.writeBack(); err != nil {
		return nil, err
	}
	if err := r.audit.Flush(); err != nil {
		return nil, err
	}
	return r, nil
}

// writeBack updates metadata when the data is new or changed.
func (r *Register) writeBack() error {
	switch {
	case !r.autoUpdate:
		r.audit.Debug("skip updating the metadata record")
		return nil
	case r.diffLevel == DiffNoRecord:
		r.audit.Debug(fmt.Sprintf("stage %q has no metadata record, registering it", r.Stage()))
		version, err := r.Version(false)
		if err != nil {
			return err
		}
		return r.UpdateMeta(nil, map[string]any{
			r.Stage(): mergeRecord(r.dataHash, map[string]any{
				"update_time": r.updateTime.Format(datetimeLayout),
				"version":     version.StandardValue(),
			}),
		})
	case r.diffLevel > DiffNone:
		r.audit.Debug(fmt.Sprintf("metadata update needed, difference level is %d", r.diffLevel))
		version, err := r.Version(r.stage != "")
		if err != nil {
			return err
		}
		return r.UpdateMeta(nil, map[string]any{
			r.Stage(): mergeRecord(r.dataHash, map[string]any{
				"update_time": r.Timestamp().Format(datetimeLayout),
				"version":     version.StandardValue(),
			}),
		})
	}
	return nil
}

// Name returns the configuration name without its domain.
func (r *Register) Name() string { return r.name }

// Domain returns the domain name, empty when unset.
func (r *Register) Domain() string { return r.domain }

// Fullname joins domain and name with the domain partition.
func (r *Register) Fullname() string {
	if r.domain != "" {
		return r.domain + domainPartition + r.name
	}
	return r.name
}

// Shortname concatenates the first letter of each name word.
func (r *Register) Shortname() string { return shortname(r.name) }

// Environ returns the resolved environment shortname.
func (r *Register) Environ() string { return r.environ.Name() }

// Stage returns the bound stage name, base when none was requested.
func (r *Register) Stage() string {
	if r.stage == "" {
		return BaseStage
	}
	return r.stage
}

// Author returns the author name, "unknown" when unset.
func (r *Register) Author() string {
	if r.author == "" {
		return "unknown"
	}
	return r.author
}

// Changed returns the diff level computed on construction.
func (r *Register) Changed() int { return r.diffLevel }

// DataHash returns the hashed payload.
func (r *Register) DataHash() map[string]any { return r.dataHash }

// Data returns the loaded payload. On base the volatile keys recorded
// in metadata fill in when the document itself does not carry them.
func (r *Register) Data() map[string]any {
	if r.stage != "" {
		return r.data
	}
	merged := map[string]any{}
	if meta, err := r.Metadata(); err == nil {
		if record, ok := stageRecord(meta, BaseStage)["update_time"]; ok {
			merged["update_time"] = record
		}
		if record, ok := stageRecord(meta, BaseStage)["version"]; ok {
			merged["version"] = record
		}
	}
	return mergeRecord(merged, r.data)
}

// Timestamp returns the payload timestamp: construction time when the
// data changed, the recorded update time otherwise.
func (r *Register) Timestamp() time.Time {
	if r.diffLevel > DiffNone {
		return r.updateTime
	}
	if raw, ok := r.Data()["update_time"].(string); ok {
		if t, err := time.Parse(datetimeLayout, raw); err == nil {
			return t
		}
	}
	return r.updateTime
}

// Version returns the payload version, v0.0.1 when absent. With next
// the component dictated by the diff level bumps: major from level 3,
// minor from level 2 resetting micro, micro otherwise.
func (r *Register) Version(next bool) (*format.Version, error) {
	raw, ok := r.Data()["version"].(string)
	if !ok || raw == "" {
		raw = "v0.0.1"
	}
	version, err := format.ParseVersion(raw, versionLayout)
	if err != nil {
		return nil, fmt.Errorf("payload version: %w", err)
	}
	if !next {
		return version, nil
	}
	major, minor, micro := version.Release()
	switch {
	case r.diffLevel >= DiffMajor && r.diffLevel != DiffNoRecord:
		major, minor, micro = major+1, 0, 0
	case r.diffLevel == DiffStructural:
		minor, micro = minor+1, 0
	default:
		micro++
	}
	bumped, err := format.ParseVersion(fmt.Sprintf("v%d.%d.%d", major, minor, micro), versionLayout)
	if err != nil {
		return nil, fmt.Errorf("payload version: %w", err)
	}
	return bumped, nil
}

// Metadata returns the stored record of this register merged over the
// identity defaults. An empty store is a warning, not an error.
func (r *Register) Metadata() (map[string]any, error) {
	record, err := r.meta.Load()
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		r.audit.Debug(fmt.Sprintf(
			"metadata does not exist for %q in stage %q, returning defaults", r.Fullname(), r.Stage(),
		))
	}
	defaults := map[string]any{
		"conf_name":      r.name,
		"conf_shortname": r.Shortname(),
		"conf_fullname":  r.Fullname(),
		"conf_data":      map[string]any{},
		"update_time":    r.updateTime.Format(datetimeLayout),
		"register_time":  r.updateTime.Format(datetimeLayout),
		"author":         r.Author(),
	}
	return mergeRecord(defaults, record), nil
}

// UpdateMeta merges new top-level fields and per-stage config data
// into the stored record.
func (r *Register) UpdateMeta(data, configData map[string]any) error {
	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	update := mergeRecord(map[string]any{
		"update_time": r.updateTime.Format(datetimeLayout),
		"author":      r.Author(),
	}, data)
	if len(configData) > 0 {
		current, _ := meta["conf_data"].(map[string]any)
		update["conf_data"] = mergeRecord(current, configData)
	}
	return r.meta.Save(mergeRecord(meta, update))
}

// StagePath returns the stage directory relative to the data root,
// prefixed by the environment when partitioning is on.
func (r *Register) StagePath(stage string) string {
	return filepath.Join(r.params.Paths.Data, r.environ.Path()+stage)
}

// basePath returns the conf directory of base documents for this
// domain.
func (r *Register) basePath() string {
	return filepath.Join(r.params.Paths.Conf, r.environ.Path()+r.domain)
}

// excluded unions the volatile keys with the exclude rule of a stage.
func (r *Register) excluded(stage string) map[string]bool {
	rules := r.stageRules(stage)
	if len(rules.Exclude) == 0 {
		return excludeKeys
	}
	exclude := make(map[string]bool, len(excludeKeys)+len(rules.Exclude))
	for key := range excludeKeys {
		exclude[key] = true
	}
	for _, key := range rules.Exclude {
		exclude[key] = true
	}
	return exclude
}

func (r *Register) stageRules(stage string) config.Rules {
	if stage == BaseStage {
		return config.Rules{}
	}
	configured, err := r.params.Stage(stage)
	if err != nil {
		return config.Rules{}
	}
	return configured.Rules
}

func (r *Register) stageStore(stage string) (*store.FileStore, error) {
	return store.NewFileStore(
		r.StagePath(stage),
		r.params.Engine.FileExtension,
		store.WithCompress(r.stageRules(stage).Compress),
		store.WithLogger(r.logger),
	)
}

// templater binds the template token tables to this register's
// current values.
func (r *Register) templater() (*Templater, error) {
	version, err := r.Version(false)
	if err != nil {
		return nil, err
	}
	return NewTemplater(TemplateValues{
		Name:      r.name,
		Domain:    r.domain,
		Environ:   r.environ.Name(),
		Timestamp: r.Timestamp(),
		Version:   version,
		Extension: r.params.Engine.FileExtension,
	}), nil
}

// StageFile is one parsed stage filename with its order key.
type StageFile struct {
	File  string
	Order *format.OrderFormat
}

// StageFiles parses every filename in a stage directory into an order
// key, skipping files that do not match the stage template.
func (r *Register) StageFiles(stage string) ([]StageFile, error) {
	configured, err := r.params.Stage(stage)
	if err != nil {
		return nil, err
	}
	backend, err := r.stageStore(stage)
	if err != nil {
		return nil, err
	}
	names, err := backend.Files()
	if err != nil {
		return nil, err
	}
	templater, err := r.templater()
	if err != nil {
		return nil, err
	}
	var files []StageFile
	for _, name := range names {
		captures, err := templater.Parse(configured.Format, name)
		if err != nil {
			continue
		}
		mapping := make(map[string]any, len(captures))
		for key, value := range captures {
			mapping[key] = value
		}
		order, err := format.NewOrderFormat(mapping)
		if err != nil {
			continue
		}
		files = append(files, StageFile{File: name, Order: order})
	}
	return files, nil
}

// Pick loads the order-th latest payload of this register from a
// stage, or from the base documents. Reverse counts from the oldest
// instead.
func (r *Register) Pick(stage string, order int, reverse bool) (map[string]any, error) {
	if order < 1 {
		order = 1
	}
	if stage == "" || stage == BaseStage {
		base := store.NewBaseStore(r.basePath(), r.logger)
		return base.LoadBase(r.name, order)
	}
	files, err := r.StageFiles(stage)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return map[string]any{}, nil
	}
	sort.SliceStable(files, func(i, j int) bool {
		if reverse {
			return files[j].Order.Less(files[i].Order)
		}
		return files[i].Order.Less(files[j].Order)
	})
	if order > len(files) {
		return map[string]any{}, nil
	}
	backend, err := r.stageStore(stage)
	if err != nil {
		return nil, err
	}
	return backend.LoadStage(files[len(files)-order].File)
}

// Switch rebinds this register to another stage by reloading it.
func (r *Register) Switch(stage string) (*Register, error) {
	opts := []Option{WithStage(stage), WithRegisterLogger(r.logger), WithForceExists()}
	if r.author != "" {
		opts = append(opts, WithAuthor(r.author))
	}
	if !r.autoUpdate {
		opts = append(opts, WithoutAutoUpdate())
	}
	return New(r.params, r.Fullname(), opts...)
}

// Move writes the current payload into a stage under the stage's
// templated filename and returns the register rebound to that stage.
// Unchanged data moves only with force; the collision policy decides
// what happens when the target filename exists. Retention purges the
// stage afterwards.
func (r *Register) Move(stage string, force, retention bool) (*Register, error) {
	configured, err := r.params.Stage(stage)
	if err != nil {
		return nil, err
	}
	current, err := r.Pick(stage, 1, false)
	if err != nil {
		return nil, err
	}
	exclude := r.excluded(stage)
	hashed, _ := HashData(current, exclude).(map[string]any)
	diff := CompareData(r.dataHash, hashed, exclude)
	if diff == DiffNone && !force {
		r.audit.Debug(fmt.Sprintf(
			"config %q does not move %q -> %q, data has no change and move is not forced",
			r.name, r.Stage(), stage,
		))
		if err := r.audit.Flush(); err != nil {
			return nil, err
		}
		return r.Switch(stage)
	}

	templater, err := r.templater()
	if err != nil {
		return nil, err
	}
	filename, err := templater.Fill(configured.Format + "." + r.params.Engine.FileExtension)
	if err != nil {
		return nil, err
	}
	backend, err := r.stageStore(stage)
	if err != nil {
		return nil, err
	}
	filename, err = r.resolveCollision(backend, stage, filename)
	if err != nil {
		return nil, err
	}

	version, err := r.Version(false)
	if err != nil {
		return nil, err
	}
	payload := mergeRecord(r.Data(), map[string]any{
		"update_time": r.Timestamp().Format(datetimeLayout),
		"version":     version.StandardValue(),
	})
	if err := backend.SaveStage(filename, payload, false); err != nil {
		return nil, err
	}
	r.audit.Info(fmt.Sprintf("moved config %q to stage %q as %q", r.name, stage, filename))
	if retention {
		if err := r.Purge(stage); err != nil {
			return nil, err
		}
	}
	if err := r.audit.Flush(); err != nil {
		return nil, err
	}
	return r.Switch(stage)
}

// resolveCollision applies the configured collision policy to a move
// target that already exists.
func (r *Register) resolveCollision(backend *store.FileStore, stage, filename string) (string, error) {
	if !backend.Exists(filename) {
		return filename, nil
	}
	switch r.params.Engine.CollisionPolicy {
	case config.CollisionError:
		return "", fmt.Errorf(
			"%w: file %q already exists in the %q stage", config.ErrArgument, filename, stage,
		)
	case config.CollisionSerial:
		stem := strings.TrimSuffix(filename, "."+r.params.Engine.FileExtension)
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d.%s", stem, n, r.params.Engine.FileExtension)
			if !backend.Exists(candidate) {
				r.audit.Warning(fmt.Sprintf(
					"file %q already exists in the %q stage, writing %q", filename, stage, candidate,
				))
				return candidate, nil
			}
		}
	default:
		r.audit.Warning(fmt.Sprintf(
			"file %q already exists in the %q stage and will be overwritten", filename, stage,
		))
		return filename, nil
	}
}

// archivePath is the destination of a file archived before removal.
func (r *Register) archivePath(stage, filename string) string {
	name := fmt.Sprintf("%s_%s_%s", strings.ToLower(stage), r.updateTime.Format("20060102150405"), filename)
	return filepath.Join(r.params.Paths.Archive, ".archive", name)
}

// Purge removes the stage files falling below the retention bound:
// the newest file's order key shifted back by the timestamp rule, or
// floored by the version rule. Files are archived first when archive
// mode is on.
func (r *Register) Purge(stage string) error {
	if stage == "" {
		stage = r.Stage()
	}
	rules := r.stageRules(stage)
	if rules.Timestamp <= 0 && rules.Version == "" {
		return nil
	}
	files, err := r.StageFiles(stage)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	newest := files[0]
	for _, file := range files[1:] {
		if newest.Order.Less(file.Order) {
			newest = file
		}
	}
	// The upper bound is computed on a fresh parse of the newest
	// filename so the kept key stays untouched.
	bound, err := r.reparse(stage, newest.File)
	if err != nil {
		return err
	}
	switch {
	case rules.Timestamp > 0:
		if err := bound.AdjustTimestamp(rules.Timestamp, rules.TimestampMetric); err != nil {
			return err
		}
	case rules.Version != "" && rules.Version != "0.0.0":
		if err := bound.AdjustVersion(rules.Version); err != nil {
			return err
		}
	default:
		return nil
	}
	backend, err := r.stageStore(stage)
	if err != nil {
		return err
	}
	for _, file := range files {
		if !file.Order.Less(bound) {
			continue
		}
		if r.archive {
			if err := backend.Move(file.File, r.archivePath(stage, file.File)); err != nil {
				return err
			}
		}
		if err := backend.Remove(file.File); err != nil {
			return err
		}
		r.audit.Info(fmt.Sprintf("purged %q from stage %q", file.File, stage))
	}
	return r.audit.Flush()
}

func (r *Register) reparse(stage, filename string) (*format.OrderFormat, error) {
	configured, err := r.params.Stage(stage)
	if err != nil {
		return nil, err
	}
	templater, err := r.templater()
	if err != nil {
		return nil, err
	}
	captures, err := templater.Parse(configured.Format, filename)
	if err != nil {
		return nil, err
	}
	mapping := make(map[string]any, len(captures))
	for key, value := range captures {
		mapping[key] = value
	}
	return format.NewOrderFormat(mapping)
}

// Remove deletes every file of this register from a stage, archiving
// first when archive mode is on. Base never removes.
func (r *Register) Remove(stage string) error {
	if stage == "" {
		stage = r.Stage()
	}
	if stage == BaseStage {
		return fmt.Errorf("%w: the remove operation does not apply to the base stage", config.ErrArgument)
	}
	files, err := r.StageFiles(stage)
	if err != nil {
		return err
	}
	backend, err := r.stageStore(stage)
	if err != nil {
		return err
	}
	for _, file := range files {
		if r.archive {
			if err := backend.Move(file.File, r.archivePath(stage, file.File)); err != nil {
				return err
			}
		}
		if err := backend.Remove(file.File); err != nil {
			return err
		}
	}
	return nil
}

// Deploy walks the configured stages in order, moving the register
// through each until the stop stage.
func (r *Register) Deploy(stop string) (*Register, error) {
	if stop != "" && !r.params.Has(stop) {
		return nil, fmt.Errorf("%w: a stop argument must name a configured stage", config.ErrArgument)
	}
	current := r
	for _, stage := range r.params.Stages {
		next, err := current.Move(stage.Name, false, true)
		if err != nil {
			return nil, err
		}
		current = next
		if stop != "" && stage.Name == stop {
			break
		}
	}
	return current, nil
}

// Reset wipes every configured stage and the metadata record of a
// fullname, returning a fresh base register.
func Reset(params *config.Params, fullname, author string, logger *zap.Logger) (*Register, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, stage := range params.Stages {
		reg, err := New(params, fullname,
			WithStage(stage.Name),
			WithAuthor(author),
			WithoutAutoUpdate(),
			WithForceExists(),
			WithRegisterLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		if err := reg.Remove(stage.Name); err != nil {
			return nil, err
		}
	}
	name := strings.Join(strings.Fields(fullname), "")
	if idx := strings.LastIndex(name, domainPartition); idx >= 0 {
		name = name[idx+1:]
	}
	environ, err := NewEnvironment(params.Engine)
	if err != nil {
		return nil, err
	}
	meta, err := store.NewMetadata(params.Engine.ConfigMetadata, strings.ToLower(name), environ.Name(), logger)
	if err != nil {
		return nil, err
	}
	if err := meta.Remove(); err != nil {
		return nil, err
	}
	return New(params, fullname, WithAuthor(author), WithRegisterLogger(logger))
}

// stageRecord reads the per-stage hash record out of a metadata
// mapping.
func stageRecord(meta map[string]any, stage string) map[string]any {
	confData, ok := meta["conf_data"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	record, ok := confData[stage].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return record
}

// mergeRecord folds src over dst recursively, src winning.
func mergeRecord(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for key, value := range dst {
		out[key] = value
	}
	for key, value := range src {
		next, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}
		prev, ok := out[key].(map[string]any)
		if !ok {
			out[key] = next
			continue
		}
		out[key] = mergeRecord(prev, next)
	}
	return out
}
