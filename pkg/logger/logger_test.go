package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterLevels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"dev", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"dev", "nonsense", zerolog.DebugLevel},
	}
	for _, c := range cases {
		l := NewWithWriter(&bytes.Buffer{}, c.env, c.level)
		if got := l.GetLevel(); got != c.want {
			t.Errorf("env=%q level=%q: got %s, want %s", c.env, c.level, got, c.want)
		}
	}
}

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "dev", "")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"service":"sitejo-api"`) {
		t.Fatalf("missing service field: %s", buf.String())
	}
}
