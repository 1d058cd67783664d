// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/fliplens-comps/tools/dashgen/rules"
)

// Result collects validation problems. Errors fail generation; warnings
// are informational.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// MetricNames parses expr and returns the sorted, distinct metric names it
// selects.
func MetricNames(expr string) ([]string, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		if vs, ok := n.(*parser.VectorSelector); ok && vs.Name != "" {
			seen[vs.Name] = true
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Expr validates one expression found at location.
func Expr(location, expr string, known map[string]bool) Result {
	var r Result
	if expr == "" {
		r.Warnings = append(r.Warnings, location+": empty expression")
		return r
	}

	names, err := MetricNames(expr)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", location, err))
		return r
	}
	for _, name := range names {
		if !known[name] {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: unknown metric %q", location, name))
		}
	}
	return r
}

// Dashboard validates every target expression in a built dashboard. It
// walks the dashboard's JSON form so any panel type is covered.
func Dashboard(dash any, known map[string]bool) Result {
	var r Result

	data, err := json.Marshal(dash)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("marshaling dashboard: %v", err))
		return r
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("decoding dashboard: %v", err))
		return r
	}

	exprs := collectExprs(doc, "dashboard", nil)
	if len(exprs) == 0 {
		r.Warnings = append(r.Warnings, "dashboard has no query expressions")
	}
	for _, e := range exprs {
		r.merge(Expr(e.location, e.expr, known))
	}
	return r
}

// Rules validates every expression in cr. Recording rule names count as
// known metrics for the expressions that follow them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var r Result

	names := make(map[string]bool, len(known))
	for k, v := range known {
		names[k] = v
	}

	for _, g := range cr.Spec.Groups {
		for i, rule := range g.Rules {
			id := rule.Record
			if id == "" {
				id = rule.Alert
			}
			if id == "" {
				r.Errors = append(r.Errors, fmt.Sprintf("%s[%d]: rule has neither record nor alert", g.Name, i))
				continue
			}
			r.merge(Expr(g.Name+"/"+id, rule.Expr, names))
			if rule.Record != "" {
				names[rule.Record] = true
			}
		}
	}
	return r
}

type located struct {
	location string
	expr     string
}

func collectExprs(v any, path string, out []located) []located {
	switch t := v.(type) {
	case map[string]any:
		title, _ := t["title"].(string)
		if title != "" {
			path = path + "/" + title
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "expr" {
				if s, ok := t[k].(string); ok {
					out = append(out, located{location: path, expr: s})
				}
				continue
			}
			out = collectExprs(t[k], path, out)
		}
	case []any:
		for _, item := range t {
			out = collectExprs(item, path, out)
		}
	}
	return out
}
