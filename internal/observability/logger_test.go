package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_FormatAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{name: "json debug", level: "debug", format: "json", wantDebug: true, wantJSON: true},
		{name: "text info", level: "info", format: "text"},
		{name: "unknown level falls back to info", level: "verbose", format: "TEXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level, tt.format)

			assert.Equal(t, tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))
			logger.Info("source file read", "source", "focos_2019.csv")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"source":"focos_2019.csv"`)
			} else {
				assert.Contains(t, buf.String(), "source=focos_2019.csv")
			}
		})
	}
}
