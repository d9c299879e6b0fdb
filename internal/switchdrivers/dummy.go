package switchdrivers

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/shanedertrain/cusbc/internal/switchcollection"
)

// DummyConfig represents dummy driver configuration.
type DummyConfig struct {
	SwitchCount uint `mapstructure:"switch-count"`
}

// DummyFactory implements Factory for the hardware-free dummy driver.
type DummyFactory struct{}

func (f *DummyFactory) parseConfig(config map[string]interface{}) (*DummyConfig, error) {
	cfg := &DummyConfig{}
	if err := mapstructure.WeakDecode(config, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse dummy config: %w", err)
	}
	return cfg, nil
}

// CreateDriver creates a new dummy switch collection.
func (f *DummyFactory) CreateDriver(config map[string]interface{}) (switchcollection.SwitchCollection, error) {
	cfg, err := f.parseConfig(config)
	if err != nil {
		return nil, err
	}

	if cfg.SwitchCount == 0 {
		cfg.SwitchCount = 4
	}

	return switchcollection.NewDummySwitchCollection(cfg.SwitchCount), nil
}

// ValidateConfig validates dummy driver configuration.
func (f *DummyFactory) ValidateConfig(config map[string]interface{}) error {
	_, err := f.parseConfig(config)
	return err
}

func init() {
	MustRegister("dummy", &DummyFactory{})
}
