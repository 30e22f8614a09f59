// Expression analysis visitor (§4.E): computes is_deterministic,
// complexity_score, referenced_properties/variables, called_functions,
// contains_aggregate, contains_subquery, depth and node_count for an
// expression tree. Grounded on
// original_source/src/query/optimizer/analysis/expression.rs's
// analyze_recursive, adapted to this module's smaller AST (no CASE,
// list comprehension, or Cypher-specific label/property node
// variants — those complexity contributions have no counterpart
// here and are simply not reached).
package planner

import "github.com/orneryd/nordgraph/internal/expr"

// ExpressionAnalysis is the read-only report AnalyzeExpression
// produces for one expression tree.
type ExpressionAnalysis struct {
	IsDeterministic      bool
	ComplexityScore      int
	ReferencedProperties []string
	ReferencedVariables  []string
	CalledFunctions      []string
	ContainsAggregate    bool
	ContainsSubquery     bool
	Depth                int
	NodeCount            int
}

func (a *ExpressionAnalysis) addProperty(p string) {
	if !contains(a.ReferencedProperties, p) {
		a.ReferencedProperties = append(a.ReferencedProperties, p)
	}
}

func (a *ExpressionAnalysis) addVariable(v string) {
	if !contains(a.ReferencedVariables, v) {
		a.ReferencedVariables = append(a.ReferencedVariables, v)
	}
}

func (a *ExpressionAnalysis) addFunction(f string) {
	if !contains(a.CalledFunctions, f) {
		a.CalledFunctions = append(a.CalledFunctions, f)
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// AnalyzeExpression walks e bottom-up and returns its analysis. This
// is the package's single entry point into the recursive visitor
// below; referencedVariables (used by ProjectionPushdown) calls
// through it. FoldConstants does not: it walks the tree itself and
// consults expr.IsDeterministic directly.
func AnalyzeExpression(e expr.Expr) ExpressionAnalysis {
	a := ExpressionAnalysis{IsDeterministic: true}
	analyzeRecursive(e, &a, 0)
	if a.ComplexityScore > 100 {
		a.ComplexityScore = 100
	}
	return a
}

// referencedVariables is the narrow accessor ProjectionPushdown needs
// (§4.E names extract_variables as its own convenience wrapper around
// analyze, which this mirrors).
func referencedVariables(e expr.Expr) []string {
	return AnalyzeExpression(e).ReferencedVariables
}

func analyzeRecursive(e expr.Expr, a *ExpressionAnalysis, depth int) {
	if depth > a.Depth {
		a.Depth = depth
	}
	a.NodeCount++

	switch n := e.(type) {
	case expr.Literal:
		a.ComplexityScore++

	case expr.Variable:
		a.addVariable(n.Name)
		a.ComplexityScore += 2

	case expr.Parameter:
		a.ComplexityScore++

	case expr.PropertyAccess:
		a.addProperty(n.Property)
		a.ComplexityScore += 5
		analyzeRecursive(n.Entity, a, depth+1)

	case expr.Binary:
		a.ComplexityScore += 2
		analyzeRecursive(n.Left, a, depth+1)
		analyzeRecursive(n.Right, a, depth+1)

	case expr.Unary:
		a.ComplexityScore++
		analyzeRecursive(n.Operand, a, depth+1)

	case expr.ListLiteral:
		a.ComplexityScore += len(n.Items)
		for _, it := range n.Items {
			analyzeRecursive(it, a, depth+1)
		}

	case expr.FunctionCall:
		a.addFunction(n.Name)
		if !expr.IsDeterministic(n.Name) {
			a.IsDeterministic = false
		}
		if n.IsAggregate() {
			a.ContainsAggregate = true
			a.ComplexityScore += 20
		} else {
			a.ComplexityScore += 10 + len(n.Args)*2
		}
		for _, arg := range n.Args {
			analyzeRecursive(arg, a, depth+1)
		}
	}
}
