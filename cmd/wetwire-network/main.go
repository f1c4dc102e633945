// Command wetwire-network synthesizes multi-account VPC topologies into
// CloudFormation templates.
//
// Usage:
//
//	wetwire-network build -e environment.yaml       Write one template per VPC
//	wetwire-network graph -e environment.yaml --vpc prod-gateway
//	wetwire-network diff old.json new.json          Compare two templates
//	wetwire-network validate -e environment.yaml    Lint synthesized templates
//	wetwire-network version                         Show version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-network-go/internal/logging"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	logLevel  string
	logFormat string

	log *zap.Logger
}

// logger returns the configured logger, or a no-op logger before the
// persistent pre-run has built one.
func (o *rootOptions) logger() *zap.Logger {
	if o.log == nil {
		return zap.NewNop()
	}
	return o.log
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := logging.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "wetwire-network",
		Short: "Synthesize multi-account VPC topologies",
		Long: `wetwire-network synthesizes VPC network topologies into CloudFormation templates.

An environment file names the VPCs to build, the account registry they are
checked against and the customer definitions that reserve tenant subnets:

    registry: accounts.yaml
    customers: customers.yaml
    vpcs:
      - name: prod-gateway
        account: shared-prod
        role: gateway

Then generate the templates:

    wetwire-network build -e environment.yaml -o build/`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logging.Config{
				Level:  opts.logLevel,
				Format: logging.Format(opts.logFormat),
			})
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger().Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", defaults.Level, "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", string(defaults.Format), "Log format: console or json")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newGraphCmd(opts),
		newDiffCmd(),
		newValidateCmd(opts),
		newListCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-network %s\n", getVersion())
		},
	}
}
