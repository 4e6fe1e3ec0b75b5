package harness

import (
	"fmt"
	"strings"
)

// checkOutcome compares an outcome with its expectation and returns one
// message per mismatch. Without an expectation (ok false) the outcome
// only has to be free of errors.
func checkOutcome(o Outcome, exp Expect, ok bool) []string {
	if !ok {
		if o.Error != "" {
			return []string{fmt.Sprintf("unexpected error: %s", o.Message)}
		}
		return nil
	}

	if exp.Error != "" {
		switch {
		case o.Error == "":
			return []string{fmt.Sprintf("expected error %s, compiled to %q", exp.Error, o.SQL)}
		case o.Error != exp.Error:
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, o.Message)}
		}
		return nil
	}
	if o.Error != "" {
		return []string{fmt.Sprintf("unexpected error: %s", o.Message)}
	}

	var msgs []string
	if exp.SQL != "" && exp.SQL != o.SQL {
		msgs = append(msgs, fmt.Sprintf("sql mismatch\n  Expected: %s\n  Actual:   %s", exp.SQL, o.SQL))
	}
	if exp.Params != nil && !sameParams(exp.Params, o.Params) {
		msgs = append(msgs, fmt.Sprintf("params mismatch\n  Expected: %s\n  Actual:   %s",
			FormatParams(exp.Params), FormatParams(o.Params)))
	}
	for _, want := range exp.Contains {
		if !strings.Contains(o.SQL, want) {
			msgs = append(msgs, fmt.Sprintf("sql %q does not contain %q", o.SQL, want))
		}
	}
	return msgs
}

// sameParams compares parameter lists by their rendered form, so a YAML
// integer matches a bound int and a YAML float a bound float64.
func sameParams(want, got []any) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if formatParam(want[i]) != formatParam(got[i]) {
			return false
		}
	}
	return true
}

// FormatParams renders bind parameters as a bracketed list: strings quoted,
// bytes as x'hex', nil as NULL.
func FormatParams(params []any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatParam(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatParam(p any) string {
	switch v := p.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("x'%x'", v)
	case nil:
		return "NULL"
	}
	return fmt.Sprint(p)
}
