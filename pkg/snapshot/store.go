package snapshot

import (
	"fmt"

	"github.com/spf13/afero"
)

// New opens the store selected by cfg.
func New(cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}

		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		s, err := NewFileStore(afero.NewOsFs(), cfg.Path)
		if err != nil {
			return nil, err
		}

		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
