package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paramsDoc = `
engine:
  config_domain: true
  config_environment: false
  config_stage_archive: false
  config_metadata: "file://./metadata"
  config_logging: "file://./logs"
  file_extension: json
paths:
  conf: ./conf
  data: ./data
  archive: ./archive
stages:
  staging:
    format: "{name}_{timestamp:%Y%m%d}"
    rules:
      timestamp: 15
      timestamp_metric: days
  curated:
    format: "{domain}_{name}.{version:v%m.%n.%c}"
    rules:
      version: "*.*.3"
      exclude: ["updated"]
`

func TestParse(t *testing.T) {
	params, err := Parse([]byte(paramsDoc))
	require.NoError(t, err)

	assert.True(t, params.Engine.ConfigDomain)
	assert.Equal(t, "file://./metadata", params.Engine.ConfigMetadata)
	assert.Equal(t, "json", params.Engine.FileExtension)
	assert.Equal(t, CollisionOverwrite, params.Engine.CollisionPolicy)

	require.Len(t, params.Stages, 2)
	assert.Equal(t, "staging", params.Stages[0].Name)
	assert.Equal(t, 0, params.Stages[0].Index())
	assert.Equal(t, 15, params.Stages[0].Rules.Timestamp)
	assert.Equal(t, "days", params.Stages[0].Rules.TimestampMetric)
	assert.Equal(t, "curated", params.Stages[1].Name)
	assert.Equal(t, 1, params.Stages[1].Index())
	assert.Equal(t, "*.*.3", params.Stages[1].Rules.Version)
	assert.Equal(t, []string{"updated"}, params.Stages[1].Rules.Exclude)
}

func TestParseStageOrderPreserved(t *testing.T) {
	doc := `
stages:
  zulu:
    format: "{name}"
  alpha:
    format: "{name}"
  mike:
    format: "{name}"
`
	params, err := Parse([]byte(doc))
	require.NoError(t, err)
	names := make([]string, len(params.Stages))
	for i, stage := range params.Stages {
		names[i] = stage.Name
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
	assert.Equal(t, "mike", params.Final().Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "no stages",
			doc:  `engine: {file_extension: json}`,
		},
		{
			name: "no placeholder",
			doc: `
stages:
  staging:
    format: "static_name"
`,
		},
		{
			name: "unsupported placeholder",
			doc: `
stages:
  staging:
    format: "{owner}_{name}"
`,
		},
		{
			name: "rule without placeholder",
			doc: `
stages:
  staging:
    format: "{name}"
    rules:
      timestamp: 15
`,
		},
		{
			name: "bad file extension",
			doc: `
engine:
  file_extension: toml
stages:
  staging:
    format: "{name}"
`,
		},
		{
			name: "bad collision policy",
			doc: `
engine:
  collision_policy: ignore
stages:
  staging:
    format: "{name}"
`,
		},
		{
			name: "stages not a mapping",
			doc: `
stages:
  - staging
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseErrorsWrapArgument(t *testing.T) {
	_, err := Parse([]byte("stages:\n  staging:\n    format: \"{owner}\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestStageLookup(t *testing.T) {
	params, err := Parse([]byte(paramsDoc))
	require.NoError(t, err)

	stage, err := params.Stage("curated")
	require.NoError(t, err)
	assert.Equal(t, 1, stage.Index())

	_, err = params.Stage("missing")
	assert.ErrorIs(t, err, ErrArgument)
	assert.True(t, params.Has("staging"))
	assert.False(t, params.Has("missing"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parameters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(paramsDoc), 0o644))

	params, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", params.Stages[0].Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
