package template

import (
	"fmt"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/parser"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

type identifierCollector struct {
	names []string
}

func (c *identifierCollector) Visit(node *ast.Node) {
	ident, ok := (*node).(*ast.IdentifierNode)
	if !ok || contains(c.names, ident.Value) {
		return
	}
	c.names = append(c.names, ident.Value)
}

// expressionIdentifiers lists the variable names an expression reads.
func expressionIdentifiers(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	c := &identifierCollector{}
	ast.Walk(&tree.Node, c)
	return c.names, nil
}

// evaluate runs expression against env. Unknown variables evaluate to nil.
func evaluate(expression string, env map[string]any) (any, error) {
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// missingInputs lists the variables expression reads that env does not
// carry. Builtin function names are not inputs.
func missingInputs(expression string, env map[string]any) []string {
	idents, err := expressionIdentifiers(expression)
	if err != nil {
		return nil
	}
	var missing []string
	for _, name := range idents {
		if _, ok := builtin.Index[name]; ok {
			continue
		}
		if v, ok := env[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// applyMath evaluates every mathExpression property against a snapshot of
// params and stores the results. A string property receives the result in
// its shortest decimal form. An expression with missing inputs is skipped
// so validation reports the inputs instead.
func applyMath(s *schema.Schema, params map[string]any) error {
	env := make(map[string]any, len(params))
	for k, v := range params {
		env[k] = v
	}
	for _, name := range s.PropertyNames() {
		prop := s.Property(name)
		if prop.MathExpression == "" || len(missingInputs(prop.MathExpression, env)) > 0 {
			continue
		}
		result, err := evaluate(prop.MathExpression, env)
		if err != nil {
			return fmt.Errorf("template: evaluate mathExpression for %s: %w", name, err)
		}
		result = schema.NormalizeValue(result)
		if prop.Type == "string" {
			result = mathString(result)
		}
		params[name] = result
	}
	return nil
}

func mathString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case string:
		return n
	default:
		return fmt.Sprint(v)
	}
}
