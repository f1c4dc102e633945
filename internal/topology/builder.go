package topology

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/lex00/wetwire-network-go/internal/cidr"
	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

// TopologyBuilder accumulates the topology of one VPC. Stage functions take
// a builder and return an updated copy; the input builder is never modified,
// so a failed stage leaves the caller's builder as it was.
type TopologyBuilder struct {
	VPC            string
	VPCID          string
	Cidr           netip.Prefix
	SecondaryCidrs []netip.Prefix
	AZs            []string

	Groups      []SubnetGroup
	RouteTables []RouteTable
	NatGateways []NatGateway
	Acls        []NetworkAcl
	Shares      []ResourceShare
	Customers   map[string][]CustomerSubnet
	Outputs     []Output

	InternetGateway   string
	GatewayAttachment string
	TransitAttachment string

	Graph *descriptor.Graph

	nextIndex  int
	cidrBlocks map[netip.Prefix]string
}

// NewTopologyBuilder starts a topology for a VPC, emitting the VPC itself and
// one CIDR association per secondary CIDR.
func NewTopologyBuilder(vpc string, base netip.Prefix, secondary []netip.Prefix, azs []string, tags map[string]string) (TopologyBuilder, error) {
	if vpc == "" {
		return TopologyBuilder{}, fmt.Errorf("vpc name is required")
	}
	if len(azs) == 0 {
		return TopologyBuilder{}, incomplete(vpc, "no availability zones")
	}
	seen := make(map[string]bool, len(azs))
	for _, az := range azs {
		if az == "" || seen[az] {
			return TopologyBuilder{}, incomplete(vpc, "availability zone set %v has empty or repeated entries", azs)
		}
		seen[az] = true
	}
	if !base.IsValid() || !base.Addr().Is4() {
		return TopologyBuilder{}, &InvalidTopologyError{Base: base, Reason: "vpc cidr must be a valid IPv4 prefix"}
	}
	base = base.Masked()

	all := []netip.Prefix{base}
	for _, p := range secondary {
		if !p.IsValid() || !p.Addr().Is4() {
			return TopologyBuilder{}, &InvalidTopologyError{Base: p, Reason: "secondary cidr must be a valid IPv4 prefix"}
		}
		p = p.Masked()
		if cidr.Overlaps(all, []netip.Prefix{p}) {
			return TopologyBuilder{}, &InvalidTopologyError{Base: p, Reason: "secondary cidr overlaps another vpc cidr"}
		}
		all = append(all, p)
	}

	b := TopologyBuilder{
		VPC:            vpc,
		VPCID:          descriptor.ID(vpc, "", "VPC", descriptor.NoAZ),
		Cidr:           base,
		SecondaryCidrs: all[1:],
		AZs:            append([]string(nil), azs...),
		Customers:      make(map[string][]CustomerSubnet),
		Graph:          descriptor.NewGraph(),
		cidrBlocks:     make(map[netip.Prefix]string),
	}

	if err := b.add(descriptor.Descriptor{
		LogicalID: b.VPCID,
		Kind:      descriptor.KindVPC,
		Properties: descriptor.VPC{
			CidrBlock:          base.String(),
			EnableDnsHostnames: true,
			EnableDnsSupport:   true,
			Tags:               intrinsics.Tags(vpc, tags),
		},
	}); err != nil {
		return TopologyBuilder{}, err
	}

	for i, p := range b.SecondaryCidrs {
		id := descriptor.ID(vpc, "", "CidrBlock"+strconv.Itoa(i+1), descriptor.NoAZ)
		if err := b.add(descriptor.Descriptor{
			LogicalID: id,
			Kind:      descriptor.KindVPCCidrBlock,
			Properties: descriptor.VPCCidrBlock{
				VpcId:     b.vpcRef(),
				CidrBlock: p.String(),
			},
			DependsOn: []string{b.VPCID},
		}); err != nil {
			return TopologyBuilder{}, err
		}
		b.cidrBlocks[p] = id
	}

	return b, nil
}

func (b TopologyBuilder) clone() TopologyBuilder {
	c := b
	c.SecondaryCidrs = append([]netip.Prefix(nil), b.SecondaryCidrs...)
	c.AZs = append([]string(nil), b.AZs...)
	c.Groups = append([]SubnetGroup(nil), b.Groups...)
	c.RouteTables = append([]RouteTable(nil), b.RouteTables...)
	c.NatGateways = append([]NatGateway(nil), b.NatGateways...)
	c.Acls = append([]NetworkAcl(nil), b.Acls...)
	c.Shares = append([]ResourceShare(nil), b.Shares...)
	c.Outputs = append([]Output(nil), b.Outputs...)
	c.Customers = make(map[string][]CustomerSubnet, len(b.Customers))
	for k, v := range b.Customers {
		c.Customers[k] = append([]CustomerSubnet(nil), v...)
	}
	c.cidrBlocks = make(map[netip.Prefix]string, len(b.cidrBlocks))
	for k, v := range b.cidrBlocks {
		c.cidrBlocks[k] = v
	}
	if b.Graph != nil {
		c.Graph = b.Graph.Clone()
	}
	return c
}

func (b *TopologyBuilder) add(d descriptor.Descriptor) error {
	if err := b.Graph.Add(d); err != nil {
		return fmt.Errorf("%s: %w", b.VPC, err)
	}
	return nil
}

func (b TopologyBuilder) id(category, kind string, az int) string {
	return descriptor.ID(b.VPC, category, kind, az)
}

func (b TopologyBuilder) vpcRef() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: b.VPCID}
}

// Group returns the subnet group of a category.
func (b TopologyBuilder) Group(cat Category) (SubnetGroup, bool) {
	for _, g := range b.Groups {
		if g.Category == cat {
			return g, true
		}
	}
	return SubnetGroup{}, false
}

// cidrHome returns the VPC CIDR that contains p and the logical id of its
// secondary CIDR association, which is empty for the primary CIDR.
func (b TopologyBuilder) cidrHome(p netip.Prefix) (string, bool) {
	if cidr.Contains(b.Cidr, p) {
		return "", true
	}
	for _, s := range b.SecondaryCidrs {
		if cidr.Contains(s, p) {
			return b.cidrBlocks[s], true
		}
	}
	return "", false
}

// claimedBlocks returns every CIDR already assigned to a subnet.
func (b TopologyBuilder) claimedBlocks() []netip.Prefix {
	var out []netip.Prefix
	for _, g := range b.Groups {
		for _, s := range g.Subnets {
			out = append(out, s.Cidr)
		}
	}
	for _, subs := range b.Customers {
		for _, s := range subs {
			out = append(out, s.Cidr)
		}
	}
	return out
}

// subnetAZ indexes every subnet's AZ by logical id.
func (b TopologyBuilder) subnetAZ() map[string]int {
	out := make(map[string]int)
	for _, g := range b.Groups {
		for _, s := range g.Subnets {
			out[s.LogicalID] = s.AZIndex
		}
	}
	for _, subs := range b.Customers {
		for _, s := range subs {
			out[s.LogicalID] = s.AZIndex
		}
	}
	return out
}

// natGateway returns the NAT gateway in an AZ, egress or edge.
func (b TopologyBuilder) natGateway(az int, edge bool) (NatGateway, bool) {
	for _, n := range b.NatGateways {
		if n.AZIndex == az && n.Edge == edge {
			return n, true
		}
	}
	return NatGateway{}, false
}

// addSubnet emits a subnet descriptor.
func (b *TopologyBuilder) addSubnet(s Subnet, label string, tags map[string]string, public bool) error {
	deps := []string{b.VPCID}
	home, ok := b.cidrHome(s.Cidr)
	if !ok {
		return &InvalidTopologyError{Base: s.Cidr, Reason: fmt.Sprintf("subnet %s lies outside every cidr of vpc %s", s.LogicalID, b.VPC)}
	}
	if home != "" {
		deps = append(deps, home)
	}
	name := fmt.Sprintf("%s-%s-%s", b.VPC, label, s.AZ)
	return b.add(descriptor.Descriptor{
		LogicalID: s.LogicalID,
		Kind:      descriptor.KindSubnet,
		Properties: descriptor.Subnet{
			VpcId:               b.vpcRef(),
			CidrBlock:           s.Cidr.String(),
			AvailabilityZone:    s.AZ,
			MapPublicIpOnLaunch: public,
			Tags:                intrinsics.Tags(name, tags),
		},
		DependsOn: deps,
	})
}

// addRouteTable emits a route table, its default route and its subnet
// associations, and records it.
func (b *TopologyBuilder) addRouteTable(rt RouteTable, label string, deps []string) error {
	name := fmt.Sprintf("%s-%s", b.VPC, label)
	if rt.AZIndex != descriptor.NoAZ {
		name += "-" + b.AZs[rt.AZIndex]
	}
	if err := b.add(descriptor.Descriptor{
		LogicalID: rt.LogicalID,
		Kind:      descriptor.KindRouteTable,
		Properties: descriptor.RouteTable{
			VpcId: b.vpcRef(),
			Tags:  intrinsics.Tags(name, map[string]string{"network:route-table": string(rt.Kind)}),
		},
		DependsOn: []string{b.VPCID},
	}); err != nil {
		return err
	}

	route := descriptor.Route{
		RouteTableId:         intrinsics.Ref{LogicalName: rt.LogicalID},
		DestinationCidrBlock: "0.0.0.0/0",
	}
	routeDeps := append([]string{rt.LogicalID}, deps...)
	switch rt.Target {
	case TargetInternetGateway:
		route.GatewayId = intrinsics.Ref{LogicalName: rt.TargetID}
		routeDeps = append(routeDeps, rt.TargetID)
	case TargetNatGateway:
		route.NatGatewayId = intrinsics.Ref{LogicalName: rt.TargetID}
		routeDeps = append(routeDeps, rt.TargetID)
	case TargetTransitGateway:
		route.TransitGatewayId = rt.TargetID
	}
	if rt.Target != TargetNone {
		if err := b.add(descriptor.Descriptor{
			LogicalID:  b.id(label, "DefaultRoute", rt.AZIndex),
			Kind:       descriptor.KindRoute,
			Properties: route,
			DependsOn:  routeDeps,
		}); err != nil {
			return err
		}
	}

	for _, subnetID := range rt.Subnets {
		if err := b.add(descriptor.Descriptor{
			LogicalID: subnetID + "RouteTableAssociation",
			Kind:      descriptor.KindRouteTableAssociation,
			Properties: descriptor.SubnetRouteTableAssociation{
				SubnetId:     intrinsics.Ref{LogicalName: subnetID},
				RouteTableId: intrinsics.Ref{LogicalName: rt.LogicalID},
			},
			DependsOn: []string{subnetID, rt.LogicalID},
		}); err != nil {
			return err
		}
	}

	b.RouteTables = append(b.RouteTables, rt)
	return nil
}
