package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-network-go/internal/registry"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

type mockSTSAPI struct {
	getCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTSAPI) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.getCallerIdentityFunc(ctx, params, optFns...)
}

func callerWithAccount(id string) *mockSTSAPI {
	return &mockSTSAPI{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{Account: aws.String(id)}, nil
		},
	}
}

// stubAWS replaces the AWS config loader and STS client for one test.
func stubAWS(t *testing.T, client STSAPI) {
	t.Helper()
	origLoad, origSTS := loadAWSConfig, newSTSClient
	loadAWSConfig = func(ctx context.Context, profile, region string) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	newSTSClient = func(aws.Config) STSAPI { return client }
	t.Cleanup(func() {
		loadAWSConfig, newSTSClient = origLoad, origSTS
	})
}

func sampleRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadRegistry("../../examples/network/accounts.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestCallerAccount(t *testing.T) {
	reg := sampleRegistry(t)

	account, err := callerAccount(context.Background(), callerWithAccount("111111111111"), reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Name != "shared-prod" {
		t.Errorf("account = %s, want shared-prod", account.Name)
	}

	_, err = callerAccount(context.Background(), callerWithAccount("999999999999"), reg)
	if err == nil || !strings.Contains(err.Error(), "not in the registry") {
		t.Errorf("expected unknown account error, got %v", err)
	}

	failing := &mockSTSAPI{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, errors.New("expired token")
		},
	}
	_, err = callerAccount(context.Background(), failing, reg)
	if err == nil || !strings.Contains(err.Error(), "expired token") {
		t.Errorf("expected STS error, got %v", err)
	}
}

func TestOwnedBy(t *testing.T) {
	inputs := []topology.Input{
		{Name: "a", Account: "shared-prod"},
		{Name: "b", Account: "app-dev"},
		{Name: "c", Account: "shared-prod"},
	}

	got := ownedBy(inputs, "shared-prod")
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("ownedBy() = %+v", got)
	}
	if len(ownedBy(inputs, "nobody")) != 0 {
		t.Error("expected no inputs")
	}
}

func TestRunBuild_DetectAccount(t *testing.T) {
	stubAWS(t, callerWithAccount("444444444444"))

	var out bytes.Buffer
	opts := buildOptions{
		env:          envOptions{file: testEnv, detectAccount: true},
		outputDir:    t.TempDir(),
		outputFormat: "json",
	}
	if err := runBuild(context.Background(), &out, zap.NewNop(), opts); err != nil {
		t.Fatalf("runBuild() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), `"dev-spoke"`) {
		t.Error("expected the app-dev vpc to be built")
	}
	if strings.Contains(out.String(), `"prod-gateway"`) {
		t.Error("expected vpcs of other accounts to be skipped")
	}
}

func TestRunBuild_DetectAccountUnknown(t *testing.T) {
	stubAWS(t, callerWithAccount("999999999999"))

	var out bytes.Buffer
	opts := buildOptions{
		env:          envOptions{file: testEnv, detectAccount: true},
		outputDir:    t.TempDir(),
		outputFormat: "json",
	}
	if err := runBuild(context.Background(), &out, zap.NewNop(), opts); err == nil {
		t.Error("expected failure for an account outside the registry")
	}
	if !strings.Contains(out.String(), "caller account 999999999999 is not in the registry") {
		t.Errorf("expected the account error in the summary, got:\n%s", out.String())
	}
}
