package switchdrivers

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shanedertrain/cusbc/internal/executil"
	"github.com/shanedertrain/cusbc/internal/hub"
	"github.com/shanedertrain/cusbc/internal/switchcollection"
)

// CusbcConfig represents cusbc driver configuration.
type CusbcConfig struct {
	Executable string `mapstructure:"executable"`
	Port       string `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Format     string `mapstructure:"format"`
	Timeout    int    `mapstructure:"timeout"` // in seconds
}

// CusbcFactory implements Factory for hubs driven through the vendor
// executable.
type CusbcFactory struct{}

func (f *CusbcFactory) parseConfig(config map[string]interface{}) (*CusbcConfig, error) {
	cfg := &CusbcConfig{}
	if err := mapstructure.WeakDecode(config, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse cusbc config: %w", err)
	}
	return cfg, nil
}

// CreateDriver creates a new cusbc switch collection.
func (f *CusbcFactory) CreateDriver(config map[string]interface{}) (switchcollection.SwitchCollection, error) {
	cfg, err := f.parseConfig(config)
	if err != nil {
		return nil, err
	}

	format := hub.FormatBitmap
	if cfg.Format != "" {
		format, err = hub.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10
	}

	ctrl := hub.New(hub.Config{
		Executable: cfg.Executable,
		Port:       cfg.Port,
		Password:   cfg.Password,
	}, executil.ExecRunner{})

	return switchcollection.NewCusbcCollection(ctrl, format, time.Duration(cfg.Timeout)*time.Second), nil
}

// ValidateConfig validates cusbc driver configuration.
func (f *CusbcFactory) ValidateConfig(config map[string]interface{}) error {
	cfg, err := f.parseConfig(config)
	if err != nil {
		return err
	}

	if cfg.Format != "" {
		if _, err := hub.ParseFormat(cfg.Format); err != nil {
			return err
		}
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	return nil
}

func init() {
	MustRegister("cusbc", &CusbcFactory{})
}
