package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalLoggerChains(t *testing.T) {
	// Level methods have pointer receivers, so L must hand out an
	// addressable logger for call sites that chain directly off it.
	L().Debug().Str("k", "v").Msg("chained off the global logger")
	assert.Same(t, L(), L())
}

func TestCtxUsesStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	Ctx(ctx).Info().Str("room_id", "room1").Msg("stored logger used")

	require.Contains(t, buf.String(), `"room_id":"room1"`)
	require.Contains(t, buf.String(), "stored logger used")
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	assert.Same(t, L(), Ctx(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" Warning "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}
