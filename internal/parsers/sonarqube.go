package parsers

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/triage"
)

// SonarQube reads a sonar-issues.json export:
//
//	{"issues": [{"key", "message", "severity", "component", "type", "line"}]}
type SonarQube struct{}

func (SonarQube) Name() string { return "sonarqube" }

func (SonarQube) Path() string { return "sonarqube/sonar-issues.json" }

var sonarSeverities = map[string]string{
	"BLOCKER":  "CRITICAL",
	"CRITICAL": "CRITICAL",
	"MAJOR":    "HIGH",
	"MINOR":    "LOW",
	"INFO":     "INFO",
}

func (s SonarQube) Parse(data []byte) ([]triage.Problem, error) {
	root, err := decodeRoot("SonarQube", data)
	if err != nil {
		return nil, err
	}
	issues, err := arrayAt("SonarQube", root, "issues")
	if err != nil {
		return nil, err
	}

	log := logging.With("parsers")
	problems := make([]triage.Problem, 0, len(issues))
	for i, issue := range issues {
		key := issue.Get("key").String()
		if !issue.IsObject() || key == "" {
			log.Warn().Int("index", i).Msg("skipping malformed SonarQube issue: missing key")
			continue
		}
		p := triage.Problem{
			ID:          key,
			Source:      s.Name(),
			Title:       stringOr(issue.Get("message"), "No message"),
			Description: issue.Get("message").String(),
			Severity:    sonarSeverity(stringOr(issue.Get("severity"), "INFO")),
			Component:   stringOr(issue.Get("component"), "unknown"),
			Type:        strings.ReplaceAll(strings.ToLower(issue.Get("type").String()), "_", "-"),
			RawData:     json.RawMessage(issue.Raw),
		}
		if line := issue.Get("line"); line.Type == gjson.Number {
			n := int(line.Int())
			p.Line = &n
		}
		problems = append(problems, p)
	}
	return problems, nil
}

func sonarSeverity(s string) string {
	s = strings.ToUpper(s)
	if mapped, ok := sonarSeverities[s]; ok {
		return mapped
	}
	return s
}
