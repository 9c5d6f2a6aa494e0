package supervisor

import (
	"testing"

	"github.com/larsks/carpid/internal/led"
	"github.com/spf13/pflag"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.MpdAddress != "localhost:6600" {
		t.Errorf("MpdAddress = %q, want localhost:6600", cfg.MpdAddress)
	}
	if cfg.DiagListenAddress != ":8083" {
		t.Errorf("DiagListenAddress = %q, want :8083", cfg.DiagListenAddress)
	}
}

func TestAddFlagsRegistersEveryField(t *testing.T) {
	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)

	for _, name := range []string{
		"config", "led-pin", "led-active-high", "button-chip",
		"button-next-pin", "button-prev-pin", "button-pause-pin",
		"mpd-network", "mpd-address", "device-watch-dir",
		"device-disk-name", "mqtt-server-url", "diag-listen-address",
	} {
		if fs.Lookup(name) == nil {
			t.Errorf("flag %s was not registered", name)
		}
	}
}

func TestLedModeName(t *testing.T) {
	want := map[led.Mode]string{
		led.Off:          "OFF",
		led.On:           "ON",
		led.BlinkSlowly:  "BLINK_SLOWLY",
		led.BlinkQuickly: "BLINK_QUICKLY",
	}
	for mode, name := range want {
		if got := ledModeName(mode); got != name {
			t.Errorf("ledModeName(%v) = %q, want %q", mode, got, name)
		}
	}
}
