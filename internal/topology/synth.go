package topology

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/internal/registry"
)

// Engine synthesizes VPC topologies against a fixed registry, customer set
// and policy. An Engine is safe for concurrent use; it holds no mutable
// state.
type Engine struct {
	Registry  *registry.Registry
	Customers *registry.Customers
	Policy    Policy
	Logger    *zap.Logger
}

// Input describes one VPC to synthesize.
type Input struct {
	// Name identifies the VPC and prefixes every logical id.
	Name string
	// Account is the registry name of the owning account.
	Account string
	Region  string
	Role    RoleSpec

	Cidr           netip.Prefix
	SecondaryCidrs []netip.Prefix
	AZs            []string

	// SubdivisionBits overrides the role's subdivision when non-zero.
	SubdivisionBits int
	// TransitGatewayID is required for transit gateway egress.
	TransitGatewayID string
	// AccountType selects customer reservations; it defaults to one derived
	// from the owning account's role.
	AccountType string
}

// Result is the synthesized topology of one VPC.
type Result struct {
	VPC     string
	Account string
	Region  string
	Role    string

	Graph       *descriptor.Graph
	Groups      []SubnetGroup
	RouteTables []RouteTable
	NatGateways []NatGateway
	Acls        []NetworkAcl
	Shares      []ResourceShare
	Outputs     []Output

	customers map[string][]CustomerSubnet
}

// SubnetIDs returns the subnet logical ids of a category in AZ order.
func (r *Result) SubnetIDs(cat Category) []string {
	for _, g := range r.Groups {
		if g.Category == cat {
			return g.SubnetIDs()
		}
	}
	return nil
}

// RouteTableIDs returns the logical ids of route tables of one kind.
func (r *Result) RouteTableIDs(kind RouteTableKind) []string {
	var ids []string
	for _, rt := range r.RouteTables {
		if rt.Kind == kind {
			ids = append(ids, rt.LogicalID)
		}
	}
	return ids
}

// CustomerSubnets returns the subnets allocated to a customer.
func (r *Result) CustomerSubnets(name string) []CustomerSubnet {
	return append([]CustomerSubnet(nil), r.customers[name]...)
}

// CustomerNames lists customers with allocated subnets, sorted.
func (r *Result) CustomerNames() []string {
	names := make([]string, 0, len(r.customers))
	for n := range r.customers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// AccountType maps an owner role to the account type customer reservations
// are keyed by.
func AccountType(role registry.AccountRole) string {
	switch role {
	case registry.RoleProductionHub:
		return "production"
	case registry.RoleNonProductionHub:
		return "nonproduction"
	case registry.RoleSandboxHub:
		return "sandbox"
	default:
		return string(role)
	}
}

// Synthesize builds the full descriptor graph of one VPC. It either returns
// a complete result or an error; nothing is returned for a partially wired
// topology.
func (e *Engine) Synthesize(in Input) (*Result, error) {
	log := e.logger().With(zap.String("vpc", in.Name), zap.String("role", in.Role.Name))

	if e.Registry == nil {
		return nil, fmt.Errorf("%s: no account registry", in.Name)
	}
	if err := in.Role.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", in.Name, err)
	}
	owner, ok := e.Registry.Account(in.Account)
	if !ok {
		return nil, fmt.Errorf("%s: owning account %q is not in the registry", in.Name, in.Account)
	}
	region := in.Region
	if region == "" {
		region = e.Registry.PrimaryRegion
	}
	bits := in.SubdivisionBits
	if bits == 0 {
		bits = in.Role.SubdivisionBits
	}

	b, err := NewTopologyBuilder(in.Name, in.Cidr, in.SecondaryCidrs, in.AZs, map[string]string{
		"network:role":    in.Role.Name,
		"network:account": owner.Name,
		"network:region":  region,
	})
	if err != nil {
		return nil, err
	}

	b, err = AllocateGroups(b, in.Role, bits)
	if err != nil {
		return nil, fmt.Errorf("subnets: %w", err)
	}
	log.Debug("allocated subnet groups", zap.Int("groups", len(b.Groups)), zap.Int("bits", bits))

	b, err = WireRoutes(b, in.Role, in.TransitGatewayID)
	if err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	log.Debug("wired route tables",
		zap.Int("route_tables", len(b.RouteTables)),
		zap.Int("nat_gateways", len(b.NatGateways)),
		zap.String("egress", string(in.Role.Egress)))

	b, err = ApplyNacls(b, e.Policy)
	if err != nil {
		return nil, fmt.Errorf("nacls: %w", err)
	}
	log.Debug("applied network acls", zap.Int("acls", len(b.Acls)))

	b, err = ShareSubnets(b, in.Role, e.Registry, owner, region, e.Policy.Sharing)
	if err != nil {
		return nil, fmt.Errorf("sharing: %w", err)
	}
	for _, s := range b.Shares {
		log.Debug("shared subnets", zap.String("share", s.Name), zap.Int("principals", len(s.Principals)))
	}

	if in.Role.CustomerSubnets {
		accountType := in.AccountType
		if accountType == "" {
			accountType = AccountType(owner.Role)
		}
		key := registry.CidrKey{Region: region, AccountType: accountType}
		var defs []registry.CustomerDefinition
		if e.Customers != nil {
			defs = e.Customers.Sorted()
		}
		b, err = AllocateCustomerSubnets(b, defs, key, e.Registry)
		if err != nil {
			return nil, fmt.Errorf("customers: %w", err)
		}
		log.Debug("allocated customer subnets", zap.String("key", key.String()), zap.Int("customers", len(b.Customers)))
	}

	b = AddOutputs(b)
	if err := b.Graph.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", in.Name, err)
	}

	log.Info("synthesized vpc",
		zap.String("account", owner.Name),
		zap.String("region", region),
		zap.String("cidr", b.Cidr.String()),
		zap.Int("resources", b.Graph.Len()),
		zap.Int("shares", len(b.Shares)))

	return &Result{
		VPC:         in.Name,
		Account:     owner.Name,
		Region:      region,
		Role:        in.Role.Name,
		Graph:       b.Graph,
		Groups:      b.Groups,
		RouteTables: b.RouteTables,
		NatGateways: b.NatGateways,
		Acls:        b.Acls,
		Shares:      b.Shares,
		Outputs:     b.Outputs,
		customers:   b.Customers,
	}, nil
}

// SynthesizeAll synthesizes independent VPCs concurrently and returns their
// results in input order. The first failure cancels VPCs not yet started
// and is returned.
func (e *Engine) SynthesizeAll(ctx context.Context, inputs []Input) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.Synthesize(in)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
