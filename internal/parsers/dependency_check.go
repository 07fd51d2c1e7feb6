package parsers

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/triage"
)

// DependencyCheck reads an OWASP Dependency-Check JSON report. Each
// dependencies[].vulnerabilities[] entry becomes one problem.
type DependencyCheck struct{}

func (DependencyCheck) Name() string { return "dependency-check" }

func (DependencyCheck) Path() string { return "dependency-check/dependency-check-report.json" }

var advisorySeverities = map[string]string{
	"CRITICAL":      "CRITICAL",
	"HIGH":          "HIGH",
	"MEDIUM":        "MEDIUM",
	"MODERATE":      "MEDIUM",
	"LOW":           "LOW",
	"INFO":          "INFO",
	"INFORMATIONAL": "INFO",
}

func (d DependencyCheck) Parse(data []byte) ([]triage.Problem, error) {
	root, err := decodeRoot("Dependency-Check", data)
	if err != nil {
		return nil, err
	}
	deps, err := arrayAt("Dependency-Check", root, "dependencies")
	if err != nil {
		return nil, err
	}

	log := logging.With("parsers")
	var problems []triage.Problem
	for i, dep := range deps {
		if !dep.IsObject() {
			log.Warn().Int("index", i).Msg("skipping malformed dependency")
			continue
		}
		for _, vuln := range dep.Get("vulnerabilities").Array() {
			if !vuln.IsObject() {
				log.Warn().Int("index", i).Msg("skipping malformed vulnerability")
				continue
			}
			p, err := d.problem(dep, vuln)
			if err != nil {
				log.Warn().Err(err).Int("index", i).Msg("skipping malformed vulnerability")
				continue
			}
			problems = append(problems, p)
		}
	}
	return problems, nil
}

func (d DependencyCheck) problem(dep, vuln gjson.Result) (triage.Problem, error) {
	id := stringOr(vuln.Get("name"), "UNKNOWN-CVE")
	file := stringOr(dep.Get("fileName"), "unknown-dependency")

	raw, err := sjson.SetRaw(`{}`, "vulnerability", vuln.Raw)
	if err != nil {
		return triage.Problem{}, err
	}
	for _, key := range []string{"fileName", "filePath"} {
		v := dep.Get(key)
		if !v.Exists() {
			v = gjson.Parse("null")
		}
		if raw, err = sjson.SetRaw(raw, "dependency."+key, v.Raw); err != nil {
			return triage.Problem{}, err
		}
	}
	packages := dep.Get("packages").Raw
	if packages == "" {
		packages = "[]"
	}
	if raw, err = sjson.SetRaw(raw, "dependency.packages", packages); err != nil {
		return triage.Problem{}, err
	}

	return triage.Problem{
		ID:          id,
		Source:      d.Name(),
		Title:       "Vulnerability in " + file + ": " + id,
		Description: withCWEs(vuln.Get("description").String(), joinStrings(vuln.Get("cwes"))),
		Severity:    advisorySeverity(stringOr(vuln.Get("severity"), "UNKNOWN")),
		Component:   file,
		Type:        "vulnerability",
		RawData:     json.RawMessage(raw),
	}, nil
}

func advisorySeverity(s string) string {
	s = strings.ToUpper(s)
	if mapped, ok := advisorySeverities[s]; ok {
		return mapped
	}
	return s
}
