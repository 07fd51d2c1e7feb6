package parsers

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/triage"
)

// CycloneDX reads a CycloneDX JSON SBOM. Vulnerabilities listed in the SBOM
// become problems; with ParseComponents every component is also reported as
// an INFO inventory entry.
type CycloneDX struct {
	ParseComponents bool
	// MinSeverity drops vulnerabilities less severe than this. Empty means LOW.
	MinSeverity string
}

func (CycloneDX) Name() string { return "cyclonedx" }

func (CycloneDX) Path() string { return "sbom/sbom.json" }

var severityOrder = map[string]int{"CRITICAL": 0, "HIGH": 1, "MEDIUM": 2, "LOW": 3, "INFO": 4}

func (c CycloneDX) Parse(data []byte) ([]triage.Problem, error) {
	root, err := decodeRoot("CycloneDX", data)
	if err != nil {
		return nil, err
	}
	if root.Get("bomFormat").String() != "CycloneDX" {
		return nil, errs.New(errs.CodeParserInputInvalid, "file is not a valid CycloneDX SBOM (missing bomFormat)")
	}
	vulns, err := arrayAt("CycloneDX", root, "vulnerabilities")
	if err != nil {
		return nil, err
	}
	components := root.Get("components").Array()

	minRank := rankOf(c.MinSeverity)
	if c.MinSeverity == "" {
		minRank = severityOrder["LOW"]
	}

	log := logging.With("parsers")
	var problems []triage.Problem
	for i, vuln := range vulns {
		if !vuln.IsObject() {
			log.Warn().Int("index", i).Msg("skipping malformed SBOM vulnerability")
			continue
		}
		p, err := c.vulnerability(vuln, components)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping malformed SBOM vulnerability")
			continue
		}
		if rankOf(p.Severity) > minRank {
			continue
		}
		problems = append(problems, p)
	}

	if c.ParseComponents {
		for i, comp := range components {
			if !comp.IsObject() {
				log.Warn().Int("index", i).Msg("skipping malformed SBOM component")
				continue
			}
			problems = append(problems, c.component(comp))
		}
	}
	return problems, nil
}

func (c CycloneDX) vulnerability(vuln gjson.Result, components []gjson.Result) (triage.Problem, error) {
	id := stringOr(vuln.Get("id"), "UNKNOWN-VULN")
	affected := affectedComponent(vuln.Get("affects.0.ref").String(), components)

	raw, err := sjson.SetRaw(`{}`, "vulnerability", vuln.Raw)
	if err != nil {
		return triage.Problem{}, err
	}
	if raw, err = sjson.Set(raw, "source_type", "sbom"); err != nil {
		return triage.Problem{}, err
	}

	return triage.Problem{
		ID:          id,
		Source:      c.Name(),
		Title:       "Vulnerability in " + affected + ": " + id,
		Description: withCWEs(vuln.Get("description").String(), joinStrings(vuln.Get("cwes"))),
		Severity:    sbomSeverity(stringOr(vuln.Get("ratings.0.severity"), "UNKNOWN")),
		Component:   affected,
		Type:        "vulnerability",
		RawData:     json.RawMessage(raw),
	}, nil
}

func (c CycloneDX) component(comp gjson.Result) triage.Problem {
	name := stringOr(comp.Get("name"), "unknown")
	version := stringOr(comp.Get("version"), "unknown")
	id := name + "@" + version

	description := "Type: " + stringOr(comp.Get("type"), "library")
	if purl := comp.Get("purl").String(); purl != "" {
		description += "\nPackage URL: " + purl
	}
	return triage.Problem{
		ID:          id,
		Source:      c.Name(),
		Title:       "Component: " + name + " " + version,
		Description: description,
		Severity:    "INFO",
		Component:   id,
		Type:        "component-inventory",
		RawData:     json.RawMessage(comp.Raw),
	}
}

func affectedComponent(ref string, components []gjson.Result) string {
	if ref == "" {
		return "unknown-component"
	}
	for _, comp := range components {
		if comp.Get("bom-ref").String() == ref {
			return stringOr(comp.Get("name"), "unknown") + "@" + comp.Get("version").String()
		}
	}
	return "unknown-component"
}

// sbomSeverity maps CycloneDX ratings; anything unrecognized is treated as LOW.
func sbomSeverity(s string) string {
	s = strings.ToUpper(s)
	if mapped, ok := advisorySeverities[s]; ok {
		return mapped
	}
	if s == "NONE" {
		return "INFO"
	}
	return "LOW"
}

func rankOf(severity string) int {
	if r, ok := severityOrder[strings.ToUpper(severity)]; ok {
		return r
	}
	return 99
}
