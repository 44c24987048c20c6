// Package config defines the parameter file model: engine flags, path and
// endpoint settings, and the ordered stage list that drives the registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrArgument marks configuration and argument errors: malformed stage
// templates, unsupported placeholders, rules with no matching placeholder.
var ErrArgument = errors.New("argument error")

// Collision policies applied when a move lands on an existing filename.
const (
	CollisionError     = "error"
	CollisionOverwrite = "overwrite"
	CollisionSerial    = "serial"
)

// formatKeys lists the placeholder names a stage template may reference.
var formatKeys = map[string]bool{
	"name":      true,
	"domain":    true,
	"environ":   true,
	"timestamp": true,
	"version":   true,
	"compress":  true,
	"extension": true,
}

// rulesExists lists the rules that require a matching template placeholder.
var rulesExists = []string{"timestamp", "version", "compress"}

// Placeholder matches one {key} or {key:pattern} occurrence in a stage
// template.
var Placeholder = regexp.MustCompile(`{(?P<name>\w+):?(?P<format>[^{}]+)?}`)

// EngineConfig holds the engine section of the parameter file.
type EngineConfig struct {
	// ConfigDomain allows register names to carry a ":domain" partition.
	ConfigDomain bool `yaml:"config_domain"`

	// ConfigEnvironment resolves APP_ENV and prefixes stage paths with
	// the environment shortname.
	ConfigEnvironment bool `yaml:"config_environment"`

	// ConfigStageArchive moves purged files into the archive path
	// before deleting them.
	ConfigStageArchive bool `yaml:"config_stage_archive"`

	// ConfigMetadata is the metadata store endpoint, "file://<path>" or
	// "sqlite://<path>".
	ConfigMetadata string `yaml:"config_metadata"`

	// ConfigLogging is the audit log endpoint, same scheme as metadata.
	ConfigLogging string `yaml:"config_logging"`

	// FileExtension is the stage file codec, "json" or "yaml".
	FileExtension string `yaml:"file_extension"`

	// CollisionPolicy decides what a move does when the target filename
	// already exists: "error", "overwrite" or "serial".
	CollisionPolicy string `yaml:"collision_policy"`
}

// PathsConfig holds the filesystem layout of the parameter file.
type PathsConfig struct {
	// Conf is the base-stage directory holding source YAML documents.
	Conf string `yaml:"conf"`

	// Data is the root directory for stage directories.
	Data string `yaml:"data"`

	// Archive receives purged files when ConfigStageArchive is set.
	Archive string `yaml:"archive"`
}

// Rules holds the retention and codec rules of one stage.
type Rules struct {
	// Timestamp keeps files within this many timestamp units of the
	// newest file; zero disables timestamp retention.
	Timestamp int `yaml:"timestamp"`

	// TimestampMetric is the unit of Timestamp ("years", "months",
	// "days", "hours", "minutes", "seconds"); empty means months.
	TimestampMetric string `yaml:"timestamp_metric"`

	// Version is a 3-component floor spec ("*.1.3"); empty disables
	// version retention.
	Version string `yaml:"version"`

	// Compress names the file codec suffix ("gzip", "gz", "bz2", "xz").
	Compress string `yaml:"compress"`

	// Exclude lists data keys ignored by the content hash.
	Exclude []string `yaml:"exclude"`
}

// Stage is one configured lifecycle stage: a filename template plus its
// retention rules. Index reflects the position in the configured list.
type Stage struct {
	Name   string
	Format string `yaml:"format"`
	Rules  Rules  `yaml:"rules"`

	index int
}

// Index returns the position of the stage in the configured stage list,
// or -1 when the stage was never resolved against a list.
func (s Stage) Index() int { return s.index }

// Validate checks the stage template: it must contain at least one
// placeholder, every placeholder must be a recognized format key, and
// every retention rule must have a matching placeholder.
func (s Stage) Validate() error {
	matches := Placeholder.FindAllStringSubmatch(s.Format, -1)
	if len(matches) == 0 {
		return fmt.Errorf("%w: format in stage %q does not include any format name", ErrArgument, s.Name)
	}
	for _, match := range matches {
		if !formatKeys[match[1]] {
			return fmt.Errorf("%w: format in stage %q has an unsupported format name %q", ErrArgument, s.Name, match[1])
		}
	}
	names := make(map[string]bool, len(matches))
	for _, match := range matches {
		names[match[1]] = true
	}
	for _, rule := range rulesExists {
		if s.ruleSet(rule) && !names[rule] {
			return fmt.Errorf("%w: stage %q sets %s rule but does not set %s format", ErrArgument, s.Name, rule, rule)
		}
	}
	return nil
}

func (s Stage) ruleSet(rule string) bool {
	switch rule {
	case "timestamp":
		return s.Rules.Timestamp != 0
	case "version":
		return s.Rules.Version != ""
	case "compress":
		return s.Rules.Compress != ""
	}
	return false
}

// StageList is the ordered stage sequence. It decodes from a YAML
// mapping keyed by stage name and keeps the document order, which the
// registry relies on for deploy and for the final stage.
type StageList []Stage

// UnmarshalYAML implements yaml.Unmarshaler preserving mapping order.
func (l *StageList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: stages must be a mapping of stage name to properties", ErrArgument)
	}
	stages := make(StageList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		stage := Stage{index: len(stages)}
		if err := node.Content[i].Decode(&stage.Name); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&stage); err != nil {
			return err
		}
		stages = append(stages, stage)
	}
	*l = stages
	return nil
}

// Params is the full parameter file passed explicitly to every
// component that needs configuration.
type Params struct {
	Engine EngineConfig `yaml:"engine"`
	Paths  PathsConfig  `yaml:"paths"`
	Stages StageList    `yaml:"stages"`
}

// Load reads and validates a parameter file.
func Load(path string) (*Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates parameter file content.
func Parse(raw []byte) (*Params, error) {
	params := &Params{}
	if err := yaml.Unmarshal(raw, params); err != nil {
		return nil, fmt.Errorf("decode parameter file: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate applies defaults and checks every stage.
func (p *Params) Validate() error {
	if p.Engine.FileExtension == "" {
		p.Engine.FileExtension = "json"
	}
	if p.Engine.FileExtension != "json" && p.Engine.FileExtension != "yaml" {
		return fmt.Errorf("%w: file extension %q is not supported", ErrArgument, p.Engine.FileExtension)
	}
	if p.Engine.CollisionPolicy == "" {
		p.Engine.CollisionPolicy = CollisionOverwrite
	}
	switch p.Engine.CollisionPolicy {
	case CollisionError, CollisionOverwrite, CollisionSerial:
	default:
		return fmt.Errorf("%w: collision policy %q is not supported", ErrArgument, p.Engine.CollisionPolicy)
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("%w: parameter file does not set any stage", ErrArgument)
	}
	seen := make(map[string]bool, len(p.Stages))
	for _, stage := range p.Stages {
		if seen[stage.Name] {
			return fmt.Errorf("%w: stage %q is configured twice", ErrArgument, stage.Name)
		}
		seen[stage.Name] = true
		if err := stage.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Stage returns the configured stage by name.
func (p *Params) Stage(name string) (Stage, error) {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage, nil
		}
	}
	return Stage{index: -1}, fmt.Errorf("%w: cannot get stage %q because it is not configured", ErrArgument, name)
}

// Final returns the last configured stage.
func (p *Params) Final() Stage {
	return p.Stages[len(p.Stages)-1]
}

// Has reports whether a stage name is configured.
func (p *Params) Has(name string) bool {
	_, err := p.Stage(name)
	return err == nil
}
