// Package calculator is a deterministic math plugin: it extracts an
// arithmetic expression from the message and evaluates it locally,
// short-circuiting the model for exact answers.
package calculator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ai-assistant-be/pkg/plugin"
)

// expressionPattern grabs the longest run of arithmetic syntax,
// including sqrt(...) calls.
var expressionPattern = regexp.MustCompile(`(?i)(?:sqrt\s*\(|[\d.()+\-*/^%\s])+`)

var digitPattern = regexp.MustCompile(`\d`)

type Calculator struct{}

func New() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Description() string {
	return "Evaluates arithmetic expressions (+, -, *, /, ^, %, sqrt) exactly."
}

// CanHandle is a pure classifier: a math keyword or operator together
// with at least one digit.
func (c *Calculator) CanHandle(message string) bool {
	if !digitPattern.MatchString(message) {
		return false
	}
	lower := strings.ToLower(message)
	for _, kw := range []string{"calculate", "compute", "solve", "how much is", "what is", "sqrt"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.ContainsAny(message, "+*/^%") ||
		regexp.MustCompile(`\d\s*-\s*\d`).MatchString(message)
}

func (c *Calculator) Execute(_ context.Context, pctx *plugin.Context) *plugin.Result {
	expr := extractExpression(pctx.Message)
	if expr == "" {
		return &plugin.Result{Matched: true, Err: fmt.Errorf("no arithmetic expression found")}
	}

	value, err := Evaluate(expr)
	if err != nil {
		return &plugin.Result{Matched: true, Err: fmt.Errorf("evaluate %q: %w", expr, err)}
	}

	return &plugin.Result{
		Matched:  true,
		Response: fmt.Sprintf("%s = %s", expr, formatNumber(value)),
		Data: map[string]any{
			"expression": expr,
			"result":     value,
		},
	}
}

// extractExpression returns the longest candidate run that still
// contains a digit, trimmed of stray whitespace.
func extractExpression(message string) string {
	var best string
	for _, m := range expressionPattern.FindAllString(message, -1) {
		m = strings.Trim(m, " \t\n.")
		if !digitPattern.MatchString(m) {
			continue
		}
		if len(m) > len(best) {
			best = m
		}
	}
	// A candidate like "sqrt(144" can appear when the closing paren was
	// cut off; balance it.
	open := strings.Count(best, "(")
	closed := strings.Count(best, ")")
	for ; closed < open; closed++ {
		best += ")"
	}
	return best
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ plugin.Plugin = (*Calculator)(nil)
