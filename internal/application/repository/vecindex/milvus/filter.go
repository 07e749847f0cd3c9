package milvus

import (
	"fmt"
	"strings"
)

// Filter expressions are built with template parameters rather than value
// interpolation so owner ids never need escaping.

type filterExpr struct {
	expr   string
	params map[string]any
}

func newFilterExpr() *filterExpr {
	return &filterExpr{params: map[string]any{}}
}

// and appends a comparison clause, joining with the previous clauses.
func (f *filterExpr) and(field, operator string, value any) *filterExpr {
	name := paramName(field, len(f.params))
	clause := fmt.Sprintf("%s %s {%s}", field, operator, name)
	f.params[name] = value
	if f.expr == "" {
		f.expr = clause
	} else {
		f.expr = fmt.Sprintf("(%s) and (%s)", f.expr, clause)
	}
	return f
}

// andAny appends a disjunction of comparison clauses.
func (f *filterExpr) andAny(clauses ...string) *filterExpr {
	joined := strings.Join(clauses, " or ")
	if f.expr == "" {
		f.expr = joined
	} else {
		f.expr = fmt.Sprintf("(%s) and (%s)", f.expr, joined)
	}
	return f
}

// clause renders a single comparison with a registered parameter, for use
// with andAny.
func (f *filterExpr) clause(field, operator string, value any) string {
	name := paramName(field, len(f.params))
	f.params[name] = value
	return fmt.Sprintf("%s %s {%s}", field, operator, name)
}

// paramName converts a field name to a valid template parameter name.
// Milvus template parameters don't support '.', so it is replaced.
func paramName(field string, n int) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(field, ".", "_"), n)
}
