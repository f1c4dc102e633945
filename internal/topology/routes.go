package topology

import (
	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

// WireRoutes builds the route table topology of a role:
//
//   - one public route table for all public groups, defaulting to an
//     internet gateway
//   - one private route table per AZ for the private groups of that AZ,
//     defaulting to the NAT gateway in the same AZ, the transit gateway, or
//     nothing, depending on the role's egress
//   - for roles with customer edge routing, one more route table per AZ for
//     the customer-edge subnets, each with a private NAT gateway in its AZ
//
// Every NAT route is checked to stay within its AZ before the builder is
// returned.
func WireRoutes(b TopologyBuilder, role RoleSpec, transitGatewayID string) (TopologyBuilder, error) {
	if len(b.AZs) == 0 {
		return b, incomplete(b.VPC, "no availability zones")
	}
	out := b.clone()

	if out.hasPublicGroups() {
		if err := out.wirePublic(); err != nil {
			return b, err
		}
	}

	switch role.Egress {
	case EgressNAT:
		if err := out.placeNatGateways(); err != nil {
			return b, err
		}
	case EgressTransitGateway:
		if err := out.attachTransitGateway(transitGatewayID); err != nil {
			return b, err
		}
	}

	if err := out.wirePrivate(role, transitGatewayID); err != nil {
		return b, err
	}

	if role.CustomerEdge {
		if err := out.wireCustomerEdge(role.Egress, transitGatewayID); err != nil {
			return b, err
		}
	}

	if err := VerifyNatPinning(out); err != nil {
		return b, err
	}
	return out, nil
}

// VerifyNatPinning checks that every route table routing to a NAT gateway
// only serves subnets in that gateway's AZ.
func VerifyNatPinning(b TopologyBuilder) error {
	azOf := b.subnetAZ()
	nats := make(map[string]NatGateway, len(b.NatGateways))
	for _, n := range b.NatGateways {
		nats[n.LogicalID] = n
	}

	for _, rt := range b.RouteTables {
		if rt.Target != TargetNatGateway {
			continue
		}
		nat, ok := nats[rt.TargetID]
		if !ok {
			return incomplete(b.VPC, "route table %s targets unknown nat gateway %s", rt.LogicalID, rt.TargetID)
		}
		if rt.AZIndex != nat.AZIndex {
			return incomplete(b.VPC, "route table %s in az %d routes to nat gateway %s in az %d",
				rt.LogicalID, rt.AZIndex, nat.LogicalID, nat.AZIndex)
		}
		for _, subnetID := range rt.Subnets {
			az, ok := azOf[subnetID]
			if !ok {
				return incomplete(b.VPC, "route table %s associates unknown subnet %s", rt.LogicalID, subnetID)
			}
			if az != nat.AZIndex {
				return incomplete(b.VPC, "subnet %s in az %d routes to nat gateway %s in az %d",
					subnetID, az, nat.LogicalID, nat.AZIndex)
			}
		}
	}
	return nil
}

func (b TopologyBuilder) hasPublicGroups() bool {
	for _, g := range b.Groups {
		if g.Visibility == Public {
			return true
		}
	}
	return false
}

func (b *TopologyBuilder) wirePublic() error {
	igw := b.id("", "InternetGateway", descriptor.NoAZ)
	attachment := b.id("", "GatewayAttachment", descriptor.NoAZ)

	if err := b.add(descriptor.Descriptor{
		LogicalID:  igw,
		Kind:       descriptor.KindInternetGateway,
		Properties: descriptor.InternetGateway{Tags: intrinsics.Tags(b.VPC+"-igw", nil)},
	}); err != nil {
		return err
	}
	if err := b.add(descriptor.Descriptor{
		LogicalID: attachment,
		Kind:      descriptor.KindGatewayAttachment,
		Properties: descriptor.VPCGatewayAttachment{
			VpcId:             b.vpcRef(),
			InternetGatewayId: intrinsics.Ref{LogicalName: igw},
		},
		DependsOn: []string{b.VPCID, igw},
	}); err != nil {
		return err
	}
	b.InternetGateway = igw
	b.GatewayAttachment = attachment

	var subnets []string
	for _, g := range b.Groups {
		if g.Visibility == Public {
			subnets = append(subnets, g.SubnetIDs()...)
		}
	}

	return b.addRouteTable(RouteTable{
		LogicalID: b.id("public", "RouteTable", descriptor.NoAZ),
		Kind:      RouteTablePublic,
		AZIndex:   descriptor.NoAZ,
		Subnets:   subnets,
		Target:    TargetInternetGateway,
		TargetID:  igw,
	}, "public", []string{attachment})
}

// natHost picks the subnet that hosts the egress NAT gateway of an AZ: the
// first public group's subnet, or the first private group's subnet when the
// VPC has no public groups.
func (b TopologyBuilder) natHost(az int) (Subnet, bool, bool) {
	for _, g := range b.Groups {
		if g.Visibility == Public {
			return g.Subnets[az], true, true
		}
	}
	for _, g := range b.Groups {
		if g.Category != CategoryCustomerEdge {
			return g.Subnets[az], false, true
		}
	}
	return Subnet{}, false, false
}

func (b *TopologyBuilder) placeNatGateways() error {
	for az := range b.AZs {
		host, public, ok := b.natHost(az)
		if !ok {
			return incomplete(b.VPC, "no subnet to host a nat gateway in %s", b.AZs[az])
		}

		nat := NatGateway{
			LogicalID: b.id("egress", "NatGateway", az),
			AZIndex:   az,
			SubnetID:  host.LogicalID,
			Private:   !public,
		}
		props := descriptor.NatGateway{
			SubnetId: intrinsics.Ref{LogicalName: host.LogicalID},
			Tags:     intrinsics.Tags(b.VPC+"-nat-"+b.AZs[az], nil),
		}
		deps := []string{host.LogicalID}

		if public {
			nat.EIP = b.id("egress", "EIP", az)
			if err := b.add(descriptor.Descriptor{
				LogicalID: nat.EIP,
				Kind:      descriptor.KindEIP,
				Properties: descriptor.EIP{
					Domain: "vpc",
					Tags:   intrinsics.Tags(b.VPC+"-nat-eip-"+b.AZs[az], nil),
				},
				DependsOn: []string{b.GatewayAttachment},
			}); err != nil {
				return err
			}
			props.AllocationId = intrinsics.GetAtt{LogicalName: nat.EIP, Attribute: "AllocationId"}
			deps = append(deps, nat.EIP, b.GatewayAttachment)
		} else {
			props.ConnectivityType = "private"
		}

		if err := b.add(descriptor.Descriptor{
			LogicalID:  nat.LogicalID,
			Kind:       descriptor.KindNatGateway,
			Properties: props,
			DependsOn:  deps,
		}); err != nil {
			return err
		}
		b.NatGateways = append(b.NatGateways, nat)
	}
	return nil
}

func (b *TopologyBuilder) attachTransitGateway(transitGatewayID string) error {
	if transitGatewayID == "" {
		return incomplete(b.VPC, "transit gateway egress without a transit gateway id")
	}
	transit, ok := b.Group(CategoryTransit)
	if !ok {
		return incomplete(b.VPC, "transit gateway egress without transit subnets")
	}

	ids := transit.SubnetIDs()
	refs := make([]any, len(ids))
	for i, id := range ids {
		refs[i] = intrinsics.Ref{LogicalName: id}
	}

	attachment := b.id("", "TransitGatewayAttachment", descriptor.NoAZ)
	if err := b.add(descriptor.Descriptor{
		LogicalID: attachment,
		Kind:      descriptor.KindTransitGatewayAttach,
		Properties: descriptor.TransitGatewayAttachment{
			TransitGatewayId: transitGatewayID,
			VpcId:            b.vpcRef(),
			SubnetIds:        refs,
			Tags:             intrinsics.Tags(b.VPC+"-tgw-attachment", nil),
		},
		DependsOn: append([]string{b.VPCID}, ids...),
	}); err != nil {
		return err
	}
	b.TransitAttachment = attachment
	return nil
}

// egressTarget resolves the default route of a private route table in az.
func (b TopologyBuilder) egressTarget(egress Egress, az int, transitGatewayID string) (TargetKind, string, []string, error) {
	switch egress {
	case EgressNAT:
		nat, ok := b.natGateway(az, false)
		if !ok {
			return "", "", nil, incomplete(b.VPC, "no nat gateway in %s", b.AZs[az])
		}
		return TargetNatGateway, nat.LogicalID, nil, nil
	case EgressTransitGateway:
		if b.TransitAttachment == "" {
			return "", "", nil, incomplete(b.VPC, "transit gateway is not attached")
		}
		return TargetTransitGateway, transitGatewayID, []string{b.TransitAttachment}, nil
	default:
		return TargetNone, "", nil, nil
	}
}

func (b *TopologyBuilder) wirePrivate(role RoleSpec, transitGatewayID string) error {
	for az := range b.AZs {
		var subnets []string
		for _, g := range b.Groups {
			if g.Visibility != Private {
				continue
			}
			if role.CustomerEdge && g.Category == CategoryCustomerEdge {
				continue
			}
			subnets = append(subnets, g.Subnets[az].LogicalID)
		}
		if len(subnets) == 0 {
			return nil
		}

		target, targetID, deps, err := b.egressTarget(role.Egress, az, transitGatewayID)
		if err != nil {
			return err
		}
		if err := b.addRouteTable(RouteTable{
			LogicalID: b.id("private", "RouteTable", az),
			Kind:      RouteTablePrivate,
			AZIndex:   az,
			Subnets:   subnets,
			Target:    target,
			TargetID:  targetID,
		}, "private", deps); err != nil {
			return err
		}
	}
	return nil
}

// wireCustomerEdge gives each customer-edge subnet its own route table and a
// private NAT gateway that customer route tables in the same AZ route to.
// Customer-edge route tables themselves egress like the private tables.
func (b *TopologyBuilder) wireCustomerEdge(egress Egress, transitGatewayID string) error {
	edge, ok := b.Group(CategoryCustomerEdge)
	if !ok {
		return incomplete(b.VPC, "customer edge routing without customer-edge subnets")
	}
	label := string(CategoryCustomerEdge)

	for az := range b.AZs {
		host := edge.Subnets[az]
		nat := NatGateway{
			LogicalID: b.id(label, "NatGateway", az),
			AZIndex:   az,
			SubnetID:  host.LogicalID,
			Private:   true,
			Edge:      true,
		}
		if err := b.add(descriptor.Descriptor{
			LogicalID: nat.LogicalID,
			Kind:      descriptor.KindNatGateway,
			Properties: descriptor.NatGateway{
				SubnetId:         intrinsics.Ref{LogicalName: host.LogicalID},
				ConnectivityType: "private",
				Tags:             intrinsics.Tags(b.VPC+"-customer-edge-nat-"+b.AZs[az], nil),
			},
			DependsOn: []string{host.LogicalID},
		}); err != nil {
			return err
		}
		b.NatGateways = append(b.NatGateways, nat)

		target, targetID, deps, err := b.egressTarget(egress, az, transitGatewayID)
		if err != nil {
			return err
		}
		if err := b.addRouteTable(RouteTable{
			LogicalID: b.id(label, "RouteTable", az),
			Kind:      RouteTableCustomerEdge,
			AZIndex:   az,
			Subnets:   []string{host.LogicalID},
			Target:    target,
			TargetID:  targetID,
		}, label, deps); err != nil {
			return err
		}
	}
	return nil
}
