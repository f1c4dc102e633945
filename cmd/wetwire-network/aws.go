package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/lex00/wetwire-network-go/internal/registry"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

// STSAPI is the subset of the STS client used to identify the caller.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// loadAWSConfig and newSTSClient are replaced in tests.
var (
	loadAWSConfig = defaultAWSConfig
	newSTSClient  = func(cfg aws.Config) STSAPI { return sts.NewFromConfig(cfg) }
)

// defaultAWSConfig loads the shared AWS configuration, optionally pinned to
// a profile and region.
func defaultAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// callerAccount resolves the registry account of the current credentials.
func callerAccount(ctx context.Context, client STSAPI, reg *registry.Registry) (registry.Account, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return registry.Account{}, fmt.Errorf("getting caller identity: %w", err)
	}

	id := aws.ToString(out.Account)
	account, ok := reg.AccountByID(id)
	if !ok {
		return registry.Account{}, fmt.Errorf("caller account %s is not in the registry", id)
	}
	return account, nil
}

// ownedBy keeps the inputs whose VPC belongs to account.
func ownedBy(inputs []topology.Input, account string) []topology.Input {
	var out []topology.Input
	for _, in := range inputs {
		if in.Account == account {
			out = append(out, in)
		}
	}
	return out
}
