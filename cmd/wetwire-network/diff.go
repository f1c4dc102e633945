package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/differ"
)

func newDiffCmd() *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> <template2>",
		Short: "Compare two synthesized templates",
		Long: `Diff compares two templates semantically and reports added, removed and
modified resources and outputs. JSON and YAML templates may be mixed.

Examples:
    wetwire-network diff old/prod-gateway.json build/prod-gateway.json
    wetwire-network diff old.json new.yaml --format json
    wetwire-network diff old.json new.json --ignore-order`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], outputFormat, ignoreOrder)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore list element order")

	return cmd
}

func runDiff(w io.Writer, file1, file2, format string, ignoreOrder bool) error {
	result, err := differ.CompareFiles(file1, file2, differ.Options{IgnoreOrder: ignoreOrder})
	if err != nil {
		return err
	}

	switch format {
	case "text":
		return differ.WriteText(w, result)
	case "json":
		data, err := json.MarshalIndent(wetwire.DiffResult{Diff: result.Diff, Summary: result.Summary}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	return fmt.Errorf("unknown format: %s", format)
}
