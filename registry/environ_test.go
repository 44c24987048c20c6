package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/confstage/config"
)

func TestNewEnvironmentDisabled(t *testing.T) {
	environ, err := NewEnvironment(config.EngineConfig{ConfigEnvironment: false})
	require.NoError(t, err)
	assert.False(t, environ.Exists())
	assert.Empty(t, environ.Name())
	assert.Empty(t, environ.Path())
}

func TestNewEnvironmentRequiresAppEnv(t *testing.T) {
	t.Setenv(EnvApp, "")
	_, err := NewEnvironment(config.EngineConfig{ConfigEnvironment: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrArgument)
}

func TestNewEnvironmentNormalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"dev", "dev"},
		{"development", "dev"},
		{"DEVELOPMENT", "dev"},
		{"'production'", "prod"},
		{"Testing", "test"},
		{"uat2", "uat"},
		{"sit", "sit"},
		{"sandbox-eu", "sandbox"},
		{"staging", "staging"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv(EnvApp, tt.raw)
			environ, err := NewEnvironment(config.EngineConfig{ConfigEnvironment: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, environ.Name())
			assert.Equal(t, tt.want+"/", environ.Path())
		})
	}
}

func TestForceEnvironment(t *testing.T) {
	environ, err := ForceEnvironment("sit")
	require.NoError(t, err)
	assert.Equal(t, "sit", environ.Name())

	_, err = ForceEnvironment("qa")
	assert.ErrorIs(t, err, config.ErrArgument)
}
