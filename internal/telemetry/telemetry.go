// Package telemetry writes opt-in JSONL events describing model calls, tool
// executions and finished analyses. Events carry sizes and ids, never payloads.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petasbytes/autotriage/internal/logging"
)

// EventsFile is the file under Dir that events are appended to.
const EventsFile = "events.jsonl"

var writeMu sync.Mutex

// Emit appends one event when observation is on. The record always carries
// "event" and an RFC3339Nano "time"; fields cannot override either and are
// never modified. Failures are logged and otherwise ignored.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	log := logging.With("telemetry")
	line, err := encode(name, time.Now(), fields)
	if err != nil {
		log.Warn().Err(err).Str("event", name).Msg("event not encoded")
		return
	}
	if err := appendLine(filepath.Join(Dir(), EventsFile), line); err != nil {
		log.Warn().Err(err).Str("event", name).Msg("event not written")
	}
}

func encode(name string, now time.Time, fields map[string]any) ([]byte, error) {
	rec := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	rec["event"] = name
	rec["time"] = now.UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func appendLine(path string, line []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
