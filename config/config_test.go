package config

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{
		Soffice:        "soffice",
		Mutool:         "mutool",
		ArchiveDir:     "extracted_images",
		MatchTolerance: 1.5,
		LogLevel:       "info",
		LogFormat:      "text",
		Workers:        4,
		RenderTimeout:  2 * time.Minute,
	}
	if *c != want {
		t.Errorf("Load() = %+v, want %+v", *c, want)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SLIDEKIT_SOFFICE", "/opt/libreoffice/program/soffice")
	t.Setenv("SLIDEKIT_MATCH_TOLERANCE", "0.25")
	t.Setenv("SLIDEKIT_INLINE_FALLBACK", "true")
	t.Setenv("SLIDEKIT_WORKERS", "8")
	t.Setenv("SLIDEKIT_RENDER_TIMEOUT", "45s")
	t.Setenv("SLIDEKIT_LOG_FORMAT", "json")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Soffice != "/opt/libreoffice/program/soffice" || c.MatchTolerance != 0.25 || !c.InlineFallback ||
		c.Workers != 8 || c.RenderTimeout != 45*time.Second || c.LogFormat != "json" {
		t.Errorf("Load() = %+v", *c)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SLIDEKIT_WORKERS", "many"},
		{"SLIDEKIT_WORKERS", "0"},
		{"SLIDEKIT_MATCH_TOLERANCE", "-1"},
		{"SLIDEKIT_RENDER_TIMEOUT", "soon"},
		{"SLIDEKIT_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := Usage(&buf); err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SLIDEKIT_SOFFICE=soffice", "SLIDEKIT_WORKERS=4", "SLIDEKIT_RENDER_TIMEOUT=2m"} {
		if !strings.Contains(out, want) {
			t.Errorf("Usage() missing %q:\n%s", want, out)
		}
	}
}
