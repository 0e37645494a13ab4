package logging

import (
	"bytes"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []int{TraceLevel, DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel} {
		parsed, err := ParseLevel(LogLevelToString(lvl))
		require.Nil(t, err)
		require.Equal(t, lvl, parsed)
	}
	lvl, err := ParseLevel("")
	require.Nil(t, err)
	require.Equal(t, InfoLevel, lvl)
	_, err = ParseLevel("loud")
	require.NotNil(t, err)
}

func TestNewFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, WarnLevel)
	level.Info(logger).Log("msg", "dropped")
	level.Warn(logger).Log("msg", "kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "msg=kept")
	require.Contains(t, buf.String(), "level=warn")
}
