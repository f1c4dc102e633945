package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

type listOptions struct {
	env          envOptions
	outputFormat string
}

func newListCmd(root *rootOptions) *cobra.Command {
	opts := listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List synthesized descriptors per VPC",
		Long: `List synthesizes the environment and prints every descriptor's logical id and
resource type, grouped by VPC.

Examples:
    wetwire-network list -e environment.yaml
    wetwire-network list -e environment.yaml --vpc dev-spoke --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), root.logger(), opts)
		},
	}

	opts.env.register(cmd)
	cmd.Flags().StringSliceVar(&opts.env.vpcs, "vpc", nil, "Only list the named VPCs")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(ctx context.Context, w io.Writer, log *zap.Logger, opts listOptions) error {
	results, err := opts.env.synthesize(ctx, log)
	if err != nil {
		return err
	}
	return outputListResult(w, listResources(results), opts.outputFormat)
}

// listResources flattens the results, VPCs in environment order and
// descriptors sorted by logical id.
func listResources(results []*topology.Result) wetwire.ListResult {
	list := wetwire.ListResult{Resources: []wetwire.ListResource{}}
	for _, r := range results {
		descriptors := r.Graph.Descriptors()
		sort.Slice(descriptors, func(i, j int) bool {
			return descriptors[i].LogicalID < descriptors[j].LogicalID
		})
		for _, d := range descriptors {
			list.Resources = append(list.Resources, wetwire.ListResource{
				VPC:  r.VPC,
				Name: d.LogicalID,
				Type: string(d.Kind),
			})
		}
	}
	return list
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		vpc := ""
		for _, res := range result.Resources {
			if res.VPC != vpc {
				if vpc != "" {
					fmt.Fprintln(w)
				}
				vpc = res.VPC
				fmt.Fprintf(w, "%s:\n", vpc)
			}
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
