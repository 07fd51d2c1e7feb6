package memory

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/fsops"
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/safety"
)

// LogDir is the directory, relative to the output dir, holding conversation logs.
const LogDir = "conversation_logs"

// Message is a persisted view of one chat turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

// Log is one problem's persisted investigation.
type Log struct {
	RunID      string    `json:"run_id,omitempty"`
	ProblemID  string    `json:"problem_id"`
	Model      string    `json:"model,omitempty"`
	State      string    `json:"state"`
	ModelCalls int       `json:"model_calls"`
	SavedAt    time.Time `json:"saved_at"`
	Messages   []Message `json:"messages"`
}

// FromProvider converts a model conversation into its persisted form.
func FromProvider(msgs []provider.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: string(m.Role), Text: m.Content})
	}
	return out
}

// SaveLog writes l to <outputDir>/conversation_logs/<sanitized problem id>.json
// through the write sandbox and returns the absolute path written.
func SaveLog(outputDir string, l Log) (string, error) {
	if l.ProblemID == "" {
		return "", errs.New(errs.CodeReportWriteFailure, "conversation log needs a problem id")
	}
	if l.SavedAt.IsZero() {
		l.SavedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "create output dir")
	}
	root, err := safety.ResolveRoot(outputDir)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "resolve output dir")
	}
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "encode conversation log")
	}
	rel := filepath.Join(LogDir, SanitizeID(l.ProblemID)+".json")
	if err := fsops.WriteFile(root, rel, b); err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "write conversation log",
			errs.FieldProblem(l.ProblemID))
	}
	return filepath.Join(root, rel), nil
}

// LoadLog reads a log written by SaveLog. A missing file returns (nil, nil).
func LoadLog(outputDir, problemID string) (*Log, error) {
	p := filepath.Join(outputDir, LogDir, SanitizeID(problemID)+".json")
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var l Log
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// SanitizeID maps a problem id onto a safe file stem: anything outside
// [A-Za-z0-9._-] becomes '_', and a leading dot is replaced.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if strings.HasPrefix(s, ".") {
		s = "_" + s[1:]
	}
	if s == "" {
		s = "_"
	}
	return s
}
