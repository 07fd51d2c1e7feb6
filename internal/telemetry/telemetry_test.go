package telemetry_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/autotriage/internal/telemetry"
)

func TestEmit_AppendsOneLinePerEvent(t *testing.T) {
	base := observeInto(t)

	telemetry.Emit("first", map[string]any{"problem_id": "P-1", "n": 42})
	telemetry.Emit("second", nil)

	events := readJSONL(t, base)
	require.Len(t, events, 2)

	assert.Equal(t, "first", events[0]["event"])
	assert.Equal(t, "P-1", events[0]["problem_id"])
	assert.Equal(t, float64(42), events[0]["n"])
	ts, ok := events[0]["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)

	assert.Equal(t, "second", events[1]["event"])
	assert.Len(t, events[1], 2, "nil fields yield only event and time")
}

func TestEmit_ReservedKeysAndCallerMap(t *testing.T) {
	base := observeInto(t)
	fields := map[string]any{"event": "spoofed", "time": "never", "k": "v"}

	telemetry.Emit("real", fields)

	assert.Equal(t, map[string]any{"event": "spoofed", "time": "never", "k": "v"}, fields)
	events := readJSONL(t, base)
	require.Len(t, events, 1)
	assert.Equal(t, "real", events[0]["event"])
	assert.NotEqual(t, "never", events[0]["time"])
}

func TestEmit_Failures(t *testing.T) {
	t.Run("unencodable field writes nothing", func(t *testing.T) {
		base := observeInto(t)
		telemetry.Emit("bad", map[string]any{"x": math.NaN()})
		_, err := os.Stat(filepath.Join(base, telemetry.EventsFile))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("unwritable directory does not panic", func(t *testing.T) {
		parent := t.TempDir()
		blocker := filepath.Join(parent, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		t.Setenv("AUTOTRIAGE_ARTIFACTS_DIR", filepath.Join(blocker, "events"))
		t.Setenv("AUTOTRIAGE_OBSERVE_JSON", "1")

		assert.NotPanics(t, func() { telemetry.Emit("x", map[string]any{"a": 1}) })
	})

	t.Run("explicit opt-out wins", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "events")
		t.Setenv("AUTOTRIAGE_ARTIFACTS_DIR", base)
		t.Setenv("AUTOTRIAGE_OBSERVE_JSON", "0")
		telemetry.SetObserve(true)
		t.Cleanup(func() { telemetry.SetObserve(false) })

		telemetry.Emit("x", nil)
		_, err := os.Stat(base)
		assert.True(t, os.IsNotExist(err))
	})
}
