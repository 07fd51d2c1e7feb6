package telemetry

import (
	"os"
	"sync/atomic"
)

const (
	envObserve   = "AUTOTRIAGE_OBSERVE_JSON"
	envArtifacts = "AUTOTRIAGE_ARTIFACTS_DIR"

	// DefaultDir holds EventsFile when AUTOTRIAGE_ARTIFACTS_DIR is unset.
	DefaultDir = ".autotriage"
)

var observeEnabled atomic.Bool

func init() {
	// Read once at process start; SetObserve applies the loaded configuration.
	observeEnabled.Store(os.Getenv(envObserve) == "1")
}

// SetObserve enables or disables JSONL emission for the process.
func SetObserve(on bool) { observeEnabled.Store(on) }

// ObserveEnabled reports whether JSONL emission is on. An explicit
// AUTOTRIAGE_OBSERVE_JSON=0/1 in the environment always wins.
func ObserveEnabled() bool {
	switch os.Getenv(envObserve) {
	case "1":
		return true
	case "0":
		return false
	}
	return observeEnabled.Load()
}

// Dir is the directory EventsFile is written to.
func Dir() string {
	if d := os.Getenv(envArtifacts); d != "" {
		return d
	}
	return DefaultDir
}
