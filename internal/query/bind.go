package query

import (
	"regexp"
	"sort"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/value"
)

// placeholderPattern matches a `$name` parameter reference in raw
// query text: a dollar sign followed by an identifier. Query parsing
// itself is out of scope — this is only the minimal scan needed to
// validate that every placeholder the caller's query string mentions
// has a bound value before a PlanBuilder ever sees it (§6: "all
// parameters must be bound before execution").
var placeholderPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Placeholders returns the distinct `$name` references found in a raw
// query string, in first-occurrence order.
func Placeholders(queryString string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(queryString, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// BindParameters validates that every placeholder referenced in
// queryString has a corresponding entry in params, returning the
// sentinel error this package reports as a validation failure
// otherwise. It does not mutate params and does not itself substitute
// values into the query text — substitution is the PlanBuilder's
// concern once it builds the AST/plan; this is purely the up-front
// completeness check §6 requires before execution may proceed.
func BindParameters(queryString string, params map[string]value.Value) error {
	missing := missingParameters(queryString, params)
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errs.Validation("unbound_parameter", "missing value(s) for "+joinQuoted(missing)).
		WithSuggestion("bind every $name referenced in the query before calling execute")
}

func missingParameters(queryString string, params map[string]value.Value) []string {
	var missing []string
	for _, name := range Placeholders(queryString) {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func joinQuoted(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += "$" + n
	}
	return out
}
