package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/schema"
	"github.com/lex00/wetwire-network-go/internal/template"
	"github.com/lex00/wetwire-network-go/internal/validation"
)

type validateOptions struct {
	env          envOptions
	outputFormat string
	ignoreRules  []string
	strict       bool
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Synthesize the environment and lint each template with cfn-lint",
		Long: `Validate synthesizes every VPC, checks each template against the schemas of
the network resource types and then runs cfn-lint over it. Errors fail
validation; warnings are reported but accepted.

Examples:
    wetwire-network validate -e environment.yaml
    wetwire-network validate -e environment.yaml --format json
    wetwire-network validate -e environment.yaml --ignore W3005`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), root.logger(), opts)
		},
	}

	opts.env.register(cmd)
	cmd.Flags().StringSliceVar(&opts.env.vpcs, "vpc", nil, "Only validate the named VPCs")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&opts.ignoreRules, "ignore", nil, "cfn-lint rule ids to ignore")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Warn about properties the resource schemas do not know")

	return cmd
}

func runValidate(ctx context.Context, w io.Writer, log *zap.Logger, opts validateOptions) error {
	if opts.outputFormat != "text" && opts.outputFormat != "json" {
		return fmt.Errorf("unknown format: %s", opts.outputFormat)
	}

	results, err := opts.env.synthesize(ctx, log)
	if err != nil {
		return outputValidateResult(w, opts.outputFormat, wetwire.ValidateResult{
			Success: false,
			Errors:  []string{err.Error()},
		})
	}

	combined := wetwire.ValidateResult{Success: true}
	for _, r := range results {
		tmpl, err := template.FromResult(r)
		if err != nil {
			combined.Success = false
			combined.Errors = append(combined.Errors, fmt.Sprintf("%s: %v", r.VPC, err))
			continue
		}

		checked := schema.ValidateTemplate(tmpl, schema.Options{Strict: opts.strict})

		lint, err := validation.ValidateTemplate(tmpl, validation.Options{IgnoreRules: opts.ignoreRules})
		if err != nil {
			return err
		}
		log.Debug("linted template",
			zap.String("vpc", r.VPC),
			zap.Int("schema_errors", len(checked.Errors)),
			zap.Int("errors", len(lint.Errors)),
			zap.Int("warnings", len(lint.Warnings)))

		vr := validation.ToValidateResult(lint, len(tmpl.Resources))
		vr.Success = vr.Success && checked.Valid
		vr.Errors = append(schema.Messages(checked.Errors), vr.Errors...)
		vr.Warnings = append(schema.Messages(checked.Warnings), vr.Warnings...)
		combined = mergeValidateResults(combined, r.VPC, vr)
	}

	return outputValidateResult(w, opts.outputFormat, combined)
}

// mergeValidateResults folds one VPC's result into acc, prefixing its
// messages with the VPC name.
func mergeValidateResults(acc wetwire.ValidateResult, vpc string, r wetwire.ValidateResult) wetwire.ValidateResult {
	acc.Success = acc.Success && r.Success
	acc.Resources += r.Resources
	for _, e := range r.Errors {
		acc.Errors = append(acc.Errors, vpc+": "+e)
	}
	for _, e := range r.Warnings {
		acc.Warnings = append(acc.Warnings, vpc+": "+e)
	}
	return acc
}

func outputValidateResult(w io.Writer, format string, result wetwire.ValidateResult) error {
	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	} else {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources, %d warnings\n", result.Resources, len(result.Warnings))
		}
	}

	if !result.Success {
		return fmt.Errorf("validation failed")
	}
	return nil
}
