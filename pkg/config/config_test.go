package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/raymyers/ralph-offload/pkg/logger"
)

func TestDefault(t *testing.T) {
	c := Default()
	if !c.Inline || c.ObjectInlining || !c.TunnelJumps {
		t.Errorf("Default() = %+v", c)
	}
	if o, _ := c.Order(); o != binary.LittleEndian {
		t.Errorf("default order = %v, want little endian", o)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(Config) bool
		err   bool
	}{
		{"empty keeps defaults", "", func(c Config) bool { return c == Default() }, false},
		{"overrides", "inline: false\nobject_inlining: true\nbyte_order: big\nmalloc: my_calloc\n",
			func(c Config) bool {
				return !c.Inline && c.ObjectInlining && c.ByteOrder == "big" && c.Malloc == "my_calloc" && c.TunnelJumps
			}, false},
		{"bad order", "byte_order: middle\n", nil, true},
		{"bad level", "log_level: chatty\n", nil, true},
		{"bad format", "log_format: xml\n", nil, true},
		{"empty malloc", "malloc: \"\"\n", nil, true},
		{"not yaml", "inline: [\n", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.input))
			if (err != nil) != tt.err {
				t.Fatalf("Parse() error = %v, want error %v", err, tt.err)
			}
			if err == nil && !tt.check(c) {
				t.Errorf("Parse() = %+v", c)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offload.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nlog_format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	lc := c.Logger()
	if lc.Level != logger.LevelDebug || lc.Format != "json" {
		t.Errorf("Logger() = %+v", lc)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load() of a missing file should fail")
	}
}
