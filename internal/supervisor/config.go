package supervisor

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/larsks/carpid/internal/config"
	"github.com/spf13/pflag"
)

// defaultConfigFile returns the XDG-standard per-user config path,
// used when -config is not given.
func defaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "carpid", "carpid.toml")
}

// Config holds every knob the Main Supervisor needs, loaded through
// the same ConfigLoader-backed defaults/file/flags precedence as the
// rest of this project's config types.
type Config struct {
	ConfigFile string `mapstructure:"config-file"`

	LedPin        string `mapstructure:"led-pin"`
	LedActiveHigh bool   `mapstructure:"led-active-high"`

	ButtonChip     string `mapstructure:"button-chip"`
	ButtonNextPin  string `mapstructure:"button-next-pin"`
	ButtonPrevPin  string `mapstructure:"button-prev-pin"`
	ButtonPausePin string `mapstructure:"button-pause-pin"`

	MpdNetwork string `mapstructure:"mpd-network"`
	MpdAddress string `mapstructure:"mpd-address"`

	DeviceWatchDir  string `mapstructure:"device-watch-dir"`
	DeviceDiskName  string `mapstructure:"device-disk-name"`

	MqttServerURL string `mapstructure:"mqtt-server-url"`

	DiagListenAddress string `mapstructure:"diag-listen-address"`
}

// NewConfig returns a Config with the defaults documented for each flag.
func NewConfig() *Config {
	return &Config{
		LedPin:            "GPIO11",
		LedActiveHigh:     true,
		ButtonChip:        "gpiochip0",
		ButtonNextPin:     "GPIO5",
		ButtonPrevPin:     "GPIO6",
		ButtonPausePin:    "GPIO13",
		MpdNetwork:        "tcp",
		MpdAddress:        "localhost:6600",
		DeviceWatchDir:    "/dev",
		DeviceDiskName:    "rpi_trip",
		MqttServerURL:     "",
		DiagListenAddress: ":8083",
	}
}

func (c *Config) defaults() map[string]any {
	return map[string]any{
		"led-pin":             c.LedPin,
		"led-active-high":     c.LedActiveHigh,
		"button-chip":         c.ButtonChip,
		"button-next-pin":     c.ButtonNextPin,
		"button-prev-pin":     c.ButtonPrevPin,
		"button-pause-pin":    c.ButtonPausePin,
		"mpd-network":         c.MpdNetwork,
		"mpd-address":         c.MpdAddress,
		"device-watch-dir":    c.DeviceWatchDir,
		"device-disk-name":    c.DeviceDiskName,
		"mqtt-server-url":     c.MqttServerURL,
		"diag-listen-address": c.DiagListenAddress,
	}
}

// AddFlags registers every config field as a command-line flag.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", defaultConfigFile(), "Path to configuration file")
	fs.StringVar(&c.LedPin, "led-pin", c.LedPin, "GPIO pin driving the status LED")
	fs.BoolVar(&c.LedActiveHigh, "led-active-high", c.LedActiveHigh, "LED is lit on a high signal")
	fs.StringVar(&c.ButtonChip, "button-chip", c.ButtonChip, "gpiocdev chip name for button input lines")
	fs.StringVar(&c.ButtonNextPin, "button-next-pin", c.ButtonNextPin, "GPIO pin for the next-track button")
	fs.StringVar(&c.ButtonPrevPin, "button-prev-pin", c.ButtonPrevPin, "GPIO pin for the previous-track button")
	fs.StringVar(&c.ButtonPausePin, "button-pause-pin", c.ButtonPausePin, "GPIO pin for the play/pause button")
	fs.StringVar(&c.MpdNetwork, "mpd-network", c.MpdNetwork, "Network for the MPD connection (tcp or unix)")
	fs.StringVar(&c.MpdAddress, "mpd-address", c.MpdAddress, "Address of the MPD server")
	fs.StringVar(&c.DeviceWatchDir, "device-watch-dir", c.DeviceWatchDir, "Directory to watch for the backup disk's device node")
	fs.StringVar(&c.DeviceDiskName, "device-disk-name", c.DeviceDiskName, "Device node name fragment identifying the backup disk")
	fs.StringVar(&c.MqttServerURL, "mqtt-server-url", c.MqttServerURL, "Optional mqtt://host:port broker for telemetry; empty disables it")
	fs.StringVar(&c.DiagListenAddress, "diag-listen-address", c.DiagListenAddress, "Listen address for the read-only diagnostics HTTP endpoint")
}

// LoadConfigWithFlagSet loads configuration using a custom flag set,
// following internal/config.ConfigLoader's defaults < file < flags
// precedence.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	loader := config.NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)
	loader.SetDefaults(c.defaults())
	return loader.LoadConfigWithFlagSet(c, fs)
}
