package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/confstage/config"
)

// EnvApp is the environment variable resolved when environment
// partitioning is enabled.
const EnvApp = "APP_ENV"

// environRenames lists the recognized environment shortnames; a raw
// value starting with one of them collapses to the shortname, so
// "development" becomes "dev".
var environRenames = []string{"sandbox", "dev", "test", "sit", "uat", "prod"}

// Environment partitions stage paths and metadata endpoints per
// deployment environment. A zero Environment means partitioning is
// off.
type Environment struct {
	name string
}

// NewEnvironment resolves the environment from APP_ENV when the engine
// enables partitioning. Enabling partitioning without APP_ENV set is
// an argument error.
func NewEnvironment(engine config.EngineConfig) (Environment, error) {
	if !engine.ConfigEnvironment {
		return Environment{}, nil
	}
	raw := os.Getenv(EnvApp)
	if raw == "" {
		return Environment{}, fmt.Errorf(
			"%w: config_environment is set but %s is not set in the environment",
			config.ErrArgument, EnvApp,
		)
	}
	return Environment{name: normalizeEnviron(raw)}, nil
}

// ForceEnvironment builds an Environment from a known shortname,
// bypassing APP_ENV lookup.
func ForceEnvironment(name string) (Environment, error) {
	for _, known := range environRenames {
		if name == known {
			return Environment{name: name}, nil
		}
	}
	return Environment{}, fmt.Errorf(
		"%w: environment %q must be one of %v", config.ErrArgument, name, environRenames,
	)
}

func normalizeEnviron(raw string) string {
	cleaned := strings.ToLower(strings.Trim(raw, `'"`))
	for _, known := range environRenames {
		if strings.HasPrefix(cleaned, known) {
			return known
		}
	}
	return cleaned
}

// Name returns the environment shortname, empty when partitioning is
// off.
func (e Environment) Name() string { return e.name }

// Path returns the directory prefix of the environment, empty when
// partitioning is off.
func (e Environment) Path() string {
	if e.name == "" {
		return ""
	}
	return e.name + "/"
}

// Exists reports whether an environment was resolved.
func (e Environment) Exists() bool { return e.name != "" }
