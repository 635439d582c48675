package driving

import "github.com/deepcode-labs/deepcode/internal/core/domain"

// SettingsService reads and initialises user configuration.
type SettingsService interface {
	// Get returns the current settings merged over the defaults.
	// The pipeline configuration is validated.
	Get() (*domain.AppSettings, error)

	// WriteDefaults stores every default value that is not yet configured.
	WriteDefaults() error

	// Path returns where the configuration is stored.
	Path() string
}
