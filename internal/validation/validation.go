// Package validation runs cfn-lint over synthesized network templates.
//
// Templates are linted with cfn-lint-go as a library; in-memory templates are
// written to a temporary JSON file first, since the linter works on files.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Options configures template validation.
type Options struct {
	// IgnoreRules lists cfn-lint rule ids (e.g. "W3005") whose matches are
	// dropped.
	IgnoreRules []string
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string, opts Options) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	return categorize(matches, opts), nil
}

// ValidateTemplate writes t to a temporary file and lints it.
func ValidateTemplate(t *wetwire.Template, opts Options) (*CfnLintResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	dir, err := os.MkdirTemp("", "wetwire-network-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	return RunCfnLint(path, opts)
}

// ToValidateResult converts a lint result into the CLI contract.
func ToValidateResult(r *CfnLintResult, resources int) wetwire.ValidateResult {
	return wetwire.ValidateResult{
		Success:   r.Passed,
		Resources: resources,
		Errors:    r.Errors,
		Warnings:  r.Warnings,
	}
}

// categorize sorts matches by level. Passed is true when there are no
// errors; warnings are acceptable.
func categorize(matches []lint.Match, opts Options) *CfnLintResult {
	ignored := make(map[string]bool, len(opts.IgnoreRules))
	for _, id := range opts.IgnoreRules {
		ignored[id] = true
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		if ignored[match.Rule.ID] {
			continue
		}
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	result.Passed = len(result.Errors) == 0
	return result
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
