package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-network-go/internal/azs"
	"github.com/lex00/wetwire-network-go/internal/config"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

// envOptions selects the environment and VPCs a command synthesizes.
type envOptions struct {
	file string
	vpcs []string

	detectAccount bool
	awsAZs        bool
	profile       string
	region        string
}

func (o *envOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "environment", "e", "environment.yaml", "Environment file naming the VPCs to synthesize")
	cmd.Flags().BoolVar(&o.detectAccount, "detect-account", false, "Only synthesize VPCs owned by the account of the current AWS credentials")
	cmd.Flags().BoolVar(&o.awsAZs, "aws-azs", false, "Resolve unlisted availability zones with EC2 instead of the built-in table")
	cmd.Flags().StringVar(&o.profile, "profile", "", "AWS shared config profile")
	cmd.Flags().StringVar(&o.region, "region", "", "AWS region for STS and EC2 calls")
}

func (o *envOptions) usesAWS() bool {
	return o.detectAccount || o.awsAZs
}

// synthesize loads the environment and synthesizes the selected VPCs.
// Results are in environment order.
func (o *envOptions) synthesize(ctx context.Context, log *zap.Logger) ([]*topology.Result, error) {
	env, err := config.Load(o.file)
	if err != nil {
		return nil, err
	}
	reg, customers, err := env.LoadSources()
	if err != nil {
		return nil, err
	}

	var awsCfg aws.Config
	if o.usesAWS() {
		awsCfg, err = loadAWSConfig(ctx, o.profile, o.region)
		if err != nil {
			return nil, err
		}
	}

	var resolver azs.Resolver = azs.DefaultStatic()
	if o.awsAZs {
		resolver = azs.NewEC2ResolverFromConfig(awsCfg)
	}

	if len(o.vpcs) > 0 {
		env, err = selectVPCs(env, o.vpcs)
		if err != nil {
			return nil, err
		}
	}

	inputs, err := env.Inputs(ctx, reg, resolver)
	if err != nil {
		return nil, err
	}

	if o.detectAccount {
		account, err := callerAccount(ctx, newSTSClient(awsCfg), reg)
		if err != nil {
			return nil, err
		}
		log.Info("detected account", zap.String("account", account.Name), zap.String("id", account.ID))
		inputs = ownedBy(inputs, account.Name)
		if len(inputs) == 0 {
			return nil, fmt.Errorf("no vpcs in %s are owned by account %s", o.file, account.Name)
		}
	}

	engine := &topology.Engine{
		Registry:  reg,
		Customers: customers,
		Policy:    topology.DefaultPolicy(),
		Logger:    log,
	}
	return engine.SynthesizeAll(ctx, inputs)
}

// selectVPCs returns a copy of env restricted to the named VPCs, in the
// order given.
func selectVPCs(env *config.Environment, names []string) (*config.Environment, error) {
	selected := *env
	selected.VPCs = make([]config.VPC, 0, len(names))
	for _, name := range names {
		v, ok := env.VPC(name)
		if !ok {
			return nil, fmt.Errorf("vpc %q is not defined (known: %v)", name, env.Names())
		}
		selected.VPCs = append(selected.VPCs, v)
	}
	return &selected, nil
}
