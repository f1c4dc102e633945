package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/template"
)

type buildOptions struct {
	env          envOptions
	outputDir    string
	outputFormat string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Synthesize one CloudFormation template per VPC",
		Long: `Build synthesizes every VPC in the environment and writes one template per VPC
(<vpc>.json or <vpc>.yaml) to the output directory. A JSON build summary is
printed to stdout.

Examples:
    wetwire-network build -e environment.yaml
    wetwire-network build -e environment.yaml -o build/ --format yaml
    wetwire-network build -e environment.yaml --vpc prod-gateway`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), root.logger(), opts)
		},
	}

	opts.env.register(cmd)
	cmd.Flags().StringSliceVar(&opts.env.vpcs, "vpc", nil, "Only build the named VPCs")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "Output directory for templates")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Template format: json or yaml")

	return cmd
}

func runBuild(ctx context.Context, w io.Writer, log *zap.Logger, opts buildOptions) error {
	ext, err := templateExt(opts.outputFormat)
	if err != nil {
		return err
	}

	results, err := opts.env.synthesize(ctx, log)
	if err != nil {
		return outputBuildResult(w, wetwire.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		})
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	buildResult := wetwire.BuildResult{Success: true}
	for _, r := range results {
		tmpl, err := template.FromResult(r)
		if err != nil {
			return outputBuildResult(w, wetwire.BuildResult{
				Success: false,
				Errors:  []string{fmt.Sprintf("%s: %v", r.VPC, err)},
			})
		}
		data, err := template.Marshal(tmpl, opts.outputFormat)
		if err != nil {
			return err
		}

		path := filepath.Join(opts.outputDir, r.VPC+"."+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Info("wrote template", zap.String("vpc", r.VPC), zap.String("file", path))

		buildResult.VPCs = append(buildResult.VPCs, wetwire.BuiltVPC{
			Name:      r.VPC,
			Account:   r.Account,
			Region:    r.Region,
			Role:      r.Role,
			File:      path,
			Resources: len(tmpl.Resources),
		})
	}

	return outputBuildResult(w, buildResult)
}

// outputBuildResult prints the summary and turns a failed build into an
// error so the process exits non-zero.
func outputBuildResult(w io.Writer, result wetwire.BuildResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))

	if !result.Success {
		return fmt.Errorf("build failed")
	}
	return nil
}

func templateExt(format string) (string, error) {
	switch format {
	case "", "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unknown format: %s (use 'json' or 'yaml')", format)
}
