package config

import (
	"testing"

	"github.com/Araneidae/fa-archiver/internal/mask"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	m, err := mask.Parse("0-3")
	if err != nil {
		t.Fatalf("mask.Parse: %v", err)
	}
	return Config{
		ArchivePath:    "/data/archive.dat",
		SnifferDevice:  "/dev/fasniffer0",
		ArchiveMask:    m,
		RingBlockCount: 64,
	}
}

func TestValidateAccepted(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateReplayRequiresReplayPath(t *testing.T) {
	c := validConfig(t)
	c.Replay = true
	if err := c.Validate(); err == nil {
		t.Error("expected error for replay mode without a replay path")
	}
	c.ReplayPath = "/tmp/replay.dat"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error once replay path is set: %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(c *Config)
	}{
		{"no archive path", func(c *Config) { c.ArchivePath = "" }},
		{"no sniffer device", func(c *Config) { c.SnifferDevice = "" }},
		{"empty mask", func(c *Config) { c.ArchiveMask = mask.Mask{} }},
		{"no ring blocks", func(c *Config) { c.RingBlockCount = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			tt.corrupt(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}
