package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-network-go/internal/graph"
)

type graphOptions struct {
	env               envOptions
	vpc               string
	outputFormat      string
	includePrincipals bool
	clusterByType     bool
}

func newGraphCmd(root *rootOptions) *cobra.Command {
	opts := graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a DOT or Mermaid graph of a VPC's resource dependencies",
		Long: `Generate a DOT or Mermaid graph of the synthesized descriptors of one VPC.
Dashed edges are ordering-only dependencies (DependsOn without a reference).

The output can be rendered with Graphviz:
    wetwire-network graph -e environment.yaml --vpc prod-gateway | dot -Tpng -o vpc.png

Examples:
    wetwire-network graph -e environment.yaml --vpc prod-gateway
    wetwire-network graph -e environment.yaml --vpc prod-gateway -c
    wetwire-network graph -e environment.yaml --vpc prod-gateway -p -f mermaid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), cmd.OutOrStdout(), root.logger(), opts)
		},
	}

	opts.env.register(cmd)
	cmd.Flags().StringVar(&opts.vpc, "vpc", "", "VPC to graph (required when the environment has several)")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&opts.includePrincipals, "include-principals", "p", false, "Include principal association nodes")
	cmd.Flags().BoolVarP(&opts.clusterByType, "cluster", "c", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(ctx context.Context, w io.Writer, log *zap.Logger, opts graphOptions) error {
	format, err := graph.ParseFormat(opts.outputFormat)
	if err != nil {
		return err
	}
	if opts.vpc != "" {
		opts.env.vpcs = []string{opts.vpc}
	}

	results, err := opts.env.synthesize(ctx, log)
	if err != nil {
		return err
	}
	if len(results) != 1 {
		return fmt.Errorf("--vpc is required when the environment defines %d vpcs", len(results))
	}

	gen := &graph.Generator{
		Format:            format,
		IncludePrincipals: opts.includePrincipals,
		ClusterByType:     opts.clusterByType,
	}
	return gen.Generate(results[0].Graph, w)
}
