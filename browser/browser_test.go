package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true}
	cases := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Stylesheet", false},
		{"Document", false},
		{"XHR", false},
	}
	for _, c := range cases {
		if got := shouldBlock(set, c.resType); got != c.want {
			t.Errorf("shouldBlock(%q) = %v, want %v", c.resType, got, c.want)
		}
	}
}

func TestKnownDevice(t *testing.T) {
	for _, name := range []string{"", "desktop", "Tablet", "MOBILE"} {
		if !KnownDevice(name) {
			t.Errorf("KnownDevice(%q) = false", name)
		}
	}
	if KnownDevice("smartwatch") {
		t.Error("smartwatch should not be a known device")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()
	if cfg.MemoryLimit != 1<<30 {
		t.Errorf("memory limit = %d", cfg.MemoryLimit)
	}
	if cfg.Stealth == nil || !*cfg.Stealth {
		t.Error("stealth should default on")
	}
}
