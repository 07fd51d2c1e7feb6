// Package errs provides coded errors for autotriage.
//
// Codes follow a dotted "<area>.<subject>.<reason>" form so callers can branch
// on the trailing reason without string-matching messages.
package errs

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigReadFailure  Code = "config.load.read_failure"
	CodeConfigInvalidValue Code = "config.validate.invalid_value"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderAuthInvalid     Code = "provider.auth.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderResponseEmpty   Code = "provider.response.empty"
	CodeProviderAllModelsFailed Code = "provider.routing.all_models_failed"

	CodeRegistryDuplicate   Code = "registry.tool.duplicate"
	CodeRegistryInvalid     Code = "registry.tool.invalid"
	CodeToolNotFound        Code = "tool.lookup.not_found"
	CodeToolParamsInvalid   Code = "tool.params.invalid"
	CodeToolExecutionFailed Code = "tool.execute.failure"

	CodeSanitizeParseFailure Code = "sanitize.parse.failure"

	CodeParserInputInvalid Code = "parser.input.invalid"
	CodeParserReadFailure  Code = "parser.read.failure"

	CodeKnownIssueNotFound Code = "knownissues.entry.not_found"
	CodeKnownIssueInvalid  Code = "knownissues.entry.invalid"
	CodeKnownIssueConflict Code = "knownissues.entry.conflict"

	CodeReportWriteFailure Code = "report.write.failure"
	CodeCLIInputInvalid    Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldTool(name string) Attr { return Field("tool", name) }

func FieldModel(model string) Attr { return Field("model", model) }

func FieldProblem(id string) Attr { return Field("problem_id", id) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the code recorded in err's chain, or "" when none is set.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch c := oopsErr.Code().(type) {
	case Code:
		return c
	case string:
		return Code(c)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", c))
	}
}

// FieldsOf returns the structured context attached to err.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalid(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		pairs = append(pairs, f.Key, f.Value)
	}
	return pairs
}

func reason(code Code) string {
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
