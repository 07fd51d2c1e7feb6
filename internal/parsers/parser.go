// Package parsers turns scanner reports into triage problems.
//
// Every parser reads one JSON report and produces []triage.Problem. Malformed
// individual entries are logged and skipped; only an unreadable or structurally
// wrong report is an error.
package parsers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/triage"
)

// Parser reads one scanner's report format.
type Parser interface {
	// Name is the problem source written into every problem.
	Name() string
	// Path is the report location relative to the input directory.
	Path() string
	Parse(data []byte) ([]triage.Problem, error)
}

// ParseFile reads and parses the report at path.
func ParseFile(p Parser, path string) ([]triage.Problem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.New(errs.CodeParserReadFailure, p.Name()+" report not found: "+path,
				errs.Field("path", path))
		}
		return nil, errs.Wrap(err, errs.CodeParserReadFailure, "read "+p.Name()+" report", errs.Field("path", path))
	}
	return p.Parse(b)
}

// ParseInputDir runs each parser against its report under inputDir. A parser
// whose report fails is logged and skipped; the error list reports it.
func ParseInputDir(inputDir string, ps ...Parser) ([]triage.Problem, []error) {
	log := logging.With("parsers")
	var (
		all      []triage.Problem
		failures []error
	)
	for _, p := range ps {
		path := filepath.Join(inputDir, filepath.FromSlash(p.Path()))
		problems, err := ParseFile(p, path)
		if err != nil {
			log.Warn().Err(err).Str("parser", p.Name()).Msg("skipping report")
			failures = append(failures, err)
			continue
		}
		log.Info().Str("parser", p.Name()).Int("problems", len(problems)).Msg("report parsed")
		all = append(all, problems...)
	}
	return all, failures
}

// decodeRoot validates data and returns the top-level value.
func decodeRoot(name string, data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, errs.New(errs.CodeParserInputInvalid, "invalid JSON in "+name+" report")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, errs.New(errs.CodeParserInputInvalid, name+" report must be a JSON object")
	}
	return root, nil
}

// arrayAt returns the array at key; absent means empty, any other type is an error.
func arrayAt(name string, root gjson.Result, key string) ([]gjson.Result, error) {
	v := root.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, errs.New(errs.CodeParserInputInvalid, name+" report must have '"+key+"' array")
	}
	return v.Array(), nil
}

// stringOr returns v as a string, or def when v is absent or empty.
func stringOr(v gjson.Result, def string) string {
	if s := v.String(); v.Exists() && s != "" {
		return s
	}
	return def
}

// joinStrings renders a JSON array of scalars as "a, b".
func joinStrings(v gjson.Result) string {
	var parts []string
	for _, item := range v.Array() {
		if s := item.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func withCWEs(description, cwes string) string {
	if cwes == "" {
		return description
	}
	if description == "" {
		return "CWEs: " + cwes
	}
	return "CWEs: " + cwes + "\n" + description
}
