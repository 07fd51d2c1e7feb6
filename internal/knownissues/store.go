// Package knownissues reads and writes the human review database: one YAML
// file per reviewed problem.
package knownissues

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/fsops"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/safety"
)

// Review statuses.
const (
	StatusNotApplicable = "not_applicable"
	StatusAcceptedRisk  = "accepted_risk"
	StatusMitigated     = "mitigated"
	StatusWontFix       = "wont_fix"
)

// Statuses lists the valid review statuses in display order.
var Statuses = []string{StatusNotApplicable, StatusAcceptedRisk, StatusMitigated, StatusWontFix}

// DateLayout is the format of review_date and expires.
const DateLayout = "2006-01-02"

// Issue is one human review.
type Issue struct {
	ProblemID      string   `yaml:"problem_id" json:"problem_id"`
	Title          string   `yaml:"title" json:"title"`
	Status         string   `yaml:"status" json:"status"`
	HumanReasoning string   `yaml:"human_reasoning" json:"human_reasoning"`
	ReviewedBy     string   `yaml:"reviewed_by" json:"reviewed_by"`
	ReviewDate     string   `yaml:"review_date" json:"review_date"`
	Context        []string `yaml:"context,omitempty" json:"context,omitempty"`
	Evidence       []string `yaml:"evidence,omitempty" json:"evidence,omitempty"`
	Expires        string   `yaml:"expires,omitempty" json:"expires,omitempty"`
	ReEvaluateOn   string   `yaml:"re_evaluate_on,omitempty" json:"re_evaluate_on,omitempty"`

	// File is the base name the issue was loaded from.
	File string `yaml:"-" json:"-"`
}

// Store is a known-issues directory. A missing directory behaves as an empty
// database.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Exists reports whether the database directory has been initialized.
func (s *Store) Exists() bool {
	fi, err := os.Stat(s.dir)
	return err == nil && fi.IsDir()
}

// Lookup finds the review for problemID. Exact file names are tried first,
// then ':' '/' ' ' replaced by '-' and by '_', then the name Add would write,
// then a case-insensitive match on the file stem.
func (s *Store) Lookup(problemID string) (Issue, error) {
	notFound := errs.New(errs.CodeKnownIssueNotFound, "no human review found", errs.FieldProblem(problemID))
	if strings.TrimSpace(problemID) == "" || !s.Exists() {
		return Issue{}, notFound
	}

	dash := replaceSeparators(problemID, "-")
	under := replaceSeparators(problemID, "_")
	saved := stem(FileName(problemID))
	for _, base := range []string{problemID, dash, under, saved} {
		for _, ext := range []string{".yaml", ".yml"} {
			name := base + ext
			if strings.HasPrefix(name, ".") || strings.ContainsAny(base, `/\`) {
				continue
			}
			if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
				return s.load(name)
			}
		}
	}

	names, err := s.files()
	if err != nil {
		return Issue{}, err
	}
	want := map[string]bool{
		strings.ToLower(problemID): true,
		strings.ToLower(dash):      true,
		strings.ToLower(under):     true,
		strings.ToLower(saved):     true,
	}
	for _, name := range names {
		if want[strings.ToLower(stem(name))] {
			return s.load(name)
		}
	}
	return Issue{}, notFound
}

// List returns every loadable issue in file-name order, optionally filtered
// by status. Files that fail to parse are logged and skipped.
func (s *Store) List(status string) ([]Issue, error) {
	names, err := s.files()
	if err != nil {
		return nil, err
	}
	log := logging.With("knownissues")
	out := []Issue{}
	for _, name := range names {
		is, err := s.load(name)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable known issue")
			continue
		}
		if status != "" && is.Status != status {
			continue
		}
		out = append(out, is)
	}
	return out, nil
}

// Summary aggregates the database.
type Summary struct {
	Total        int
	ByStatus     map[string]int
	Expired      []Issue
	ExpiringSoon []Issue
}

// ExpiryWarning is how far ahead Summarize flags reviews about to expire.
const ExpiryWarning = 30 * 24 * time.Hour

// Summarize counts reviews per status and finds expired or expiring reviews
// relative to now.
func (s *Store) Summarize(now time.Time) (Summary, error) {
	issues, err := s.List("")
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Total: len(issues), ByStatus: map[string]int{}}
	for _, is := range issues {
		st := is.Status
		if st == "" {
			st = "unknown"
		}
		sum.ByStatus[st]++
		if is.Expires == "" {
			continue
		}
		exp, err := time.Parse(DateLayout, is.Expires)
		if err != nil {
			continue
		}
		switch until := exp.Sub(now); {
		case until < 0:
			sum.Expired = append(sum.Expired, is)
		case until < ExpiryWarning:
			sum.ExpiringSoon = append(sum.ExpiringSoon, is)
		}
	}
	return sum, nil
}

// FileName is the file an issue for problemID is stored under.
func FileName(problemID string) string {
	r := strings.NewReplacer(":", "_", "/", "_", " ", "-")
	return r.Replace(problemID) + ".yaml"
}

// Add validates and writes a new review. Existing files are never
// overwritten.
func (s *Store) Add(is Issue, now time.Time) (string, error) {
	is.ProblemID = strings.TrimSpace(is.ProblemID)
	is.HumanReasoning = strings.TrimSpace(is.HumanReasoning)
	if is.ProblemID == "" {
		return "", errs.New(errs.CodeKnownIssueInvalid, "problem ID is required")
	}
	if is.HumanReasoning == "" {
		return "", errs.New(errs.CodeKnownIssueInvalid, "reasoning is required", errs.FieldProblem(is.ProblemID))
	}
	if is.Status == "" {
		is.Status = StatusNotApplicable
	}
	if !ValidStatus(is.Status) {
		return "", errs.New(errs.CodeKnownIssueInvalid,
			fmt.Sprintf("invalid status %q (want one of %s)", is.Status, strings.Join(Statuses, ", ")),
			errs.FieldProblem(is.ProblemID))
	}
	if is.ReviewedBy == "" {
		is.ReviewedBy = "Unknown"
	}
	if is.ReviewDate == "" {
		is.ReviewDate = now.Format(DateLayout)
	}

	b, err := yaml.Marshal(is)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeKnownIssueInvalid, "encoding known issue", errs.FieldProblem(is.ProblemID))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "creating known issues directory")
	}
	root, err := safety.ResolveRoot(s.dir)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "resolving known issues directory")
	}
	name := FileName(is.ProblemID)
	if err := fsops.CreateFile(root, name, b); err != nil {
		if errors.Is(err, fsops.ErrExists) {
			return "", errs.New(errs.CodeKnownIssueConflict, "known issue already exists: "+name, errs.FieldProblem(is.ProblemID))
		}
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "writing known issue", errs.FieldProblem(is.ProblemID))
	}
	return filepath.Join(s.dir, name), nil
}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) load(name string) (Issue, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return Issue{}, errs.Wrap(err, errs.CodeKnownIssueInvalid, "reading "+name)
	}
	var is Issue
	if err := yaml.Unmarshal(b, &is); err != nil {
		return Issue{}, errs.Wrap(err, errs.CodeKnownIssueInvalid, "parsing "+name)
	}
	if is.ProblemID == "" && is.Title == "" && is.Status == "" && is.HumanReasoning == "" {
		return Issue{}, errs.New(errs.CodeKnownIssueInvalid, fmt.Sprintf("known issue file %s is empty or invalid", name))
	}
	is.File = name
	return is, nil
}

// files lists *.yaml and *.yml names, sorted, without dotfiles.
func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.CodeKnownIssueInvalid, "reading known issues directory")
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") {
			continue
		}
		if ext := filepath.Ext(n); ext == ".yaml" || ext == ".yml" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func replaceSeparators(id, with string) string {
	return strings.NewReplacer(":", with, "/", with, " ", with).Replace(id)
}
