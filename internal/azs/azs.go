// Package azs resolves the ordered availability zones a VPC is spread over.
//
// A VPC either lists its zones explicitly or asks for a number of zones in a
// region. Static resolves from a fixed table; EC2Resolver asks EC2 which zones
// are available to the account. Both return zone names sorted, so AZ index 0
// is always the lexically first zone.
package azs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Resolver returns count availability zones of a region.
type Resolver interface {
	Resolve(ctx context.Context, region string, count int) ([]string, error)
}

// Static resolves zones from a fixed region table.
type Static map[string][]string

// Resolve returns the first count zones of the region, sorted.
func (s Static) Resolve(_ context.Context, region string, count int) ([]string, error) {
	zones, ok := s[region]
	if !ok {
		return nil, fmt.Errorf("no availability zones known for region %s", region)
	}
	return pick(region, zones, count)
}

// DefaultStatic lists the zones of the regions the platform deploys to.
func DefaultStatic() Static {
	return Static{
		"us-east-1": {"us-east-1a", "us-east-1b", "us-east-1c", "us-east-1d", "us-east-1e", "us-east-1f"},
		"us-east-2": {"us-east-2a", "us-east-2b", "us-east-2c"},
		"us-west-2": {"us-west-2a", "us-west-2b", "us-west-2c", "us-west-2d"},
		"eu-west-1": {"eu-west-1a", "eu-west-1b", "eu-west-1c"},
	}
}

// EC2API is the subset of the EC2 client used to list zones.
type EC2API interface {
	DescribeAvailabilityZones(ctx context.Context, params *awsec2.DescribeAvailabilityZonesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeAvailabilityZonesOutput, error)
}

// EC2Resolver lists the available zones of a region through EC2. Results are
// cached per region.
type EC2Resolver struct {
	clientFor func(region string) EC2API

	mu    sync.Mutex
	cache map[string][]string
}

// NewEC2Resolver creates a resolver that gets a regional client from
// clientFor.
func NewEC2Resolver(clientFor func(region string) EC2API) *EC2Resolver {
	return &EC2Resolver{clientFor: clientFor, cache: make(map[string][]string)}
}

// NewEC2ResolverFromConfig creates a resolver backed by the SDK client built
// from cfg, re-targeted per region.
func NewEC2ResolverFromConfig(cfg aws.Config) *EC2Resolver {
	return NewEC2Resolver(func(region string) EC2API {
		return awsec2.NewFromConfig(cfg, func(o *awsec2.Options) {
			o.Region = region
		})
	})
}

// Resolve returns the first count available zones of the region.
func (r *EC2Resolver) Resolve(ctx context.Context, region string, count int) ([]string, error) {
	r.mu.Lock()
	zones, ok := r.cache[region]
	r.mu.Unlock()

	if !ok {
		var err error
		zones, err = r.describe(ctx, region)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[region] = zones
		r.mu.Unlock()
	}

	return pick(region, zones, count)
}

func (r *EC2Resolver) describe(ctx context.Context, region string) ([]string, error) {
	out, err := r.clientFor(region).DescribeAvailabilityZones(ctx, &awsec2.DescribeAvailabilityZonesInput{
		Filters: []types.Filter{
			{Name: aws.String("region-name"), Values: []string{region}},
			{Name: aws.String("zone-type"), Values: []string{"availability-zone"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("DescribeAvailabilityZones %s: %w", region, err)
	}

	var zones []string
	for _, z := range out.AvailabilityZones {
		if z.State != types.AvailabilityZoneStateAvailable {
			continue
		}
		zones = append(zones, aws.ToString(z.ZoneName))
	}
	return zones, nil
}

func pick(region string, zones []string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("availability zone count must be positive, got %d", count)
	}
	sorted := append([]string(nil), zones...)
	sort.Strings(sorted)
	if len(sorted) < count {
		return nil, fmt.Errorf("region %s has %d availability zones, %d requested", region, len(sorted), count)
	}
	return sorted[:count], nil
}
