package api

import (
	"github.com/shanedertrain/cusbc/internal/config"
	"github.com/shanedertrain/cusbc/internal/hub"
	"github.com/spf13/pflag"
)

// Config holds the configuration for the API server.

type (
	DummyConfig struct {
		SwitchCount uint `mapstructure:"switch_count"`
	}

	CusbcConfig struct {
		Executable string `mapstructure:"executable"`
		Port       string `mapstructure:"port"`
		Password   string `mapstructure:"password"`
		Format     string `mapstructure:"format"`
		Timeout    int    `mapstructure:"timeout"`
	}

	MQTTConfig struct {
		Server   string `mapstructure:"server"`
		ClientID string `mapstructure:"client_id"`
	}

	Config struct {
		ListenAddress string      `mapstructure:"listen_address"`
		ListenPort    int         `mapstructure:"listen_port"`
		ConfigFile    string      `mapstructure:"config_file"`
		Driver        string      `mapstructure:"driver"`
		Dummy         DummyConfig `mapstructure:"dummy"`
		Cusbc         CusbcConfig `mapstructure:"cusbc"`
		MQTT          MQTTConfig  `mapstructure:"mqtt"`
	}
)

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress: "",
		ListenPort:    8080,
		Driver:        "cusbc",
		Dummy: DummyConfig{
			SwitchCount: 4,
		},
		Cusbc: CusbcConfig{
			Executable: hub.DefaultExecutable,
			Format:     string(hub.FormatBitmap),
			Timeout:    10,
		},
		MQTT: MQTTConfig{
			ClientID: "cusbc-api",
		},
	}
}

// AddFlags adds pflag flags for the configuration.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config-file", "", "Config file to use")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Listen address for http server")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "Listen port for http server")
	fs.StringVar(&c.Driver, "driver", c.Driver, "Driver to use (cusbc or dummy)")
	fs.UintVar(&c.Dummy.SwitchCount, "dummy.switch-count", c.Dummy.SwitchCount, "Number of ports for the dummy driver")
	fs.StringVar(&c.Cusbc.Executable, "cusbc.executable", c.Cusbc.Executable, "Path to the vendor executable")
	fs.StringVar(&c.Cusbc.Port, "cusbc.port", c.Cusbc.Port, "COM port of the hub (empty = auto-discover)")
	fs.StringVar(&c.Cusbc.Password, "cusbc.password", c.Cusbc.Password, "Hub password for maintenance operations")
	fs.StringVar(&c.Cusbc.Format, "cusbc.format", c.Cusbc.Format, "Port state wire format (B or H)")
	fs.IntVar(&c.Cusbc.Timeout, "cusbc.timeout", c.Cusbc.Timeout, "Vendor executable timeout in seconds")
	fs.StringVar(&c.MQTT.Server, "mqtt.server", c.MQTT.Server, "MQTT broker URL for port events (empty = disabled)")
	fs.StringVar(&c.MQTT.ClientID, "mqtt.client-id", c.MQTT.ClientID, "MQTT client ID")
}

// LoadConfig loads the configuration using pflag.CommandLine.
func (c *Config) LoadConfig() error {
	return c.LoadConfigWithFlagSet(pflag.CommandLine)
}

// LoadConfigWithFlagSet loads the configuration with a custom flag set.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	loader := config.NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)
	loader.SetDefaults(map[string]any{
		"listen_address":     c.ListenAddress,
		"listen_port":        c.ListenPort,
		"driver":             c.Driver,
		"dummy.switch_count": c.Dummy.SwitchCount,
		"cusbc.executable":   c.Cusbc.Executable,
		"cusbc.port":         c.Cusbc.Port,
		"cusbc.password":     c.Cusbc.Password,
		"cusbc.format":       c.Cusbc.Format,
		"cusbc.timeout":      c.Cusbc.Timeout,
		"mqtt.server":        c.MQTT.Server,
		"mqtt.client_id":     c.MQTT.ClientID,
	})

	return loader.LoadConfigWithFlagSet(c, fs)
}

// GetListenAddress implements httpserver.Config.
func (c *Config) GetListenAddress() string { return c.ListenAddress }

// GetListenPort implements httpserver.Config.
func (c *Config) GetListenPort() int { return c.ListenPort }

// driverConfig maps the typed driver section to the registry's
// configuration format.
func (c *Config) driverConfig() map[string]interface{} {
	switch c.Driver {
	case "dummy":
		return map[string]interface{}{
			"switch-count": c.Dummy.SwitchCount,
		}
	case "cusbc":
		return map[string]interface{}{
			"executable": c.Cusbc.Executable,
			"port":       c.Cusbc.Port,
			"password":   c.Cusbc.Password,
			"format":     c.Cusbc.Format,
			"timeout":    c.Cusbc.Timeout,
		}
	}
	return nil
}
