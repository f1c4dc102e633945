package topology

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

func intrinsicsTag(key, value string) any {
	return intrinsics.Tag{Key: key, Value: value}
}

func TestNewTopologyBuilder(t *testing.T) {
	b, err := NewTopologyBuilder("shared-prod", netip.MustParsePrefix("10.10.0.5/16"), []netip.Prefix{netip.MustParsePrefix("100.64.0.0/22")}, testAZs, map[string]string{"network:role": "gateway"})
	require.NoError(t, err)

	assert.Equal(t, "SharedProdVPC", b.VPCID)
	assert.Equal(t, netip.MustParsePrefix("10.10.0.0/16"), b.Cidr)
	assert.Equal(t, []string{"SharedProdVPC", "SharedProdCidrBlock1"}, b.Graph.IDs())

	d, _ := b.Graph.Get("SharedProdVPC")
	props := d.Properties.(descriptor.VPC)
	assert.Equal(t, "10.10.0.0/16", props.CidrBlock)
	assert.True(t, props.EnableDnsSupport)
}

func TestNewTopologyBuilder_Errors(t *testing.T) {
	base := netip.MustParsePrefix("10.0.0.0/16")
	var incompleteErr *IncompleteTopologyError
	var invalid *InvalidTopologyError

	_, err := NewTopologyBuilder("x", base, nil, nil, nil)
	assert.True(t, errors.As(err, &incompleteErr))

	_, err = NewTopologyBuilder("x", base, nil, []string{"a", "a"}, nil)
	assert.True(t, errors.As(err, &incompleteErr))

	_, err = NewTopologyBuilder("x", netip.MustParsePrefix("fd00::/48"), nil, testAZs, nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = NewTopologyBuilder("x", base, []netip.Prefix{netip.MustParsePrefix("10.0.128.0/20")}, testAZs, nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = NewTopologyBuilder("", base, nil, testAZs, nil)
	assert.Error(t, err)
}

func TestBuildGroup(t *testing.T) {
	b, err := NewTopologyBuilder("vpc", netip.MustParsePrefix("10.0.0.0/16"), nil, testAZs, nil)
	require.NoError(t, err)

	cidrs := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/24"),
		netip.MustParsePrefix("10.0.1.0/24"),
		netip.MustParsePrefix("10.0.2.0/24"),
	}
	out, err := BuildGroup(b, publicGroup, cidrs)
	require.NoError(t, err)

	g, ok := out.Group(CategoryPublic)
	require.True(t, ok)
	assert.Equal(t, []string{"VpcPublicSubnetAz0", "VpcPublicSubnetAz1", "VpcPublicSubnetAz2"}, g.SubnetIDs())
	assert.Equal(t, "us-east-1b", g.Subnets[1].AZ)

	d, _ := out.Graph.Get("VpcPublicSubnetAz0")
	props := d.Properties.(descriptor.Subnet)
	assert.True(t, props.MapPublicIpOnLaunch)
	assert.Contains(t, props.Tags, intrinsicsTag("network:publicly-addressable", "true"))
	assert.Equal(t, []string{"VpcVPC"}, d.DependsOn)

	_, ok = b.Group(CategoryPublic)
	assert.False(t, ok, "input builder is unchanged")
	assert.Equal(t, 1, b.Graph.Len())

	_, err = BuildGroup(out, publicGroup, cidrs)
	assert.ErrorContains(t, err, "already built")

	_, err = BuildGroup(out, appGroup, cidrs)
	var invalid *InvalidTopologyError
	assert.True(t, errors.As(err, &invalid), "overlapping cidrs")

	_, err = BuildGroup(b, appGroup, cidrs[:2])
	assert.True(t, errors.As(err, &invalid), "one cidr per az")

	_, err = BuildGroup(b, appGroup, []netip.Prefix{
		netip.MustParsePrefix("10.1.0.0/24"),
		netip.MustParsePrefix("10.1.1.0/24"),
		netip.MustParsePrefix("10.1.2.0/24"),
	})
	assert.True(t, errors.As(err, &invalid), "outside the vpc")
}

func TestAllocateGroups_Reservations(t *testing.T) {
	b := threeTierBuilder(t)
	require.Len(t, b.Groups, 3)
	for i, g := range b.Groups {
		assert.Equal(t, i*3, g.Reservation.Start)
		assert.Equal(t, 3, g.Reservation.Count)
		assert.Equal(t, string(g.Category), g.Reservation.Owner)
	}

	more, err := AllocateGroups(b, RoleSpec{Name: "extra", Groups: []GroupSpec{managementGroup}}, 4)
	require.NoError(t, err)
	mgmt, _ := more.Group(CategoryManagement)
	assert.Equal(t, 9, mgmt.Reservation.Start)
	assert.Equal(t, "10.0.144.0/20", mgmt.Subnets[0].Cidr.String())
}

func TestWireRoutes_PublicNat(t *testing.T) {
	b, err := NewTopologyBuilder("tools", netip.MustParsePrefix("10.60.0.0/16"), nil, testAZs, nil)
	require.NoError(t, err)
	b, err = AllocateGroups(b, ToolsRole(), 5)
	require.NoError(t, err)

	out, err := WireRoutes(b, ToolsRole(), "")
	require.NoError(t, err)

	require.Len(t, out.NatGateways, 3)
	for az, n := range out.NatGateways {
		assert.Equal(t, az, n.AZIndex)
		assert.False(t, n.Private)
		assert.Equal(t, out.Groups[0].Subnets[az].LogicalID, n.SubnetID, "nat sits in the public subnet of its az")

		d, _ := out.Graph.Get(n.LogicalID)
		assert.Contains(t, d.DependsOn, "ToolsGatewayAttachment")
	}

	route, ok := out.Graph.Get("ToolsPublicDefaultRoute")
	require.True(t, ok)
	assert.Contains(t, route.DependsOn, "ToolsGatewayAttachment")

	private := filterTables(out.RouteTables, RouteTablePrivate)
	require.Len(t, private, 3)
	assert.Len(t, private[0].Subnets, 5, "transit, app, data, management and ad-data")
	assert.Empty(t, b.RouteTables, "input builder is unchanged")
}

func TestVerifyNatPinning_DetectsCrossAZ(t *testing.T) {
	out, err := WireRoutes(threeTierBuilder(t), threeTierRole(), "")
	require.NoError(t, err)
	require.NoError(t, VerifyNatPinning(out))

	broken := out.clone()
	broken.RouteTables[0].TargetID = broken.NatGateways[1].LogicalID

	var incompleteErr *IncompleteTopologyError
	assert.True(t, errors.As(VerifyNatPinning(broken), &incompleteErr))

	broken = out.clone()
	broken.RouteTables[0].Subnets = append(broken.RouteTables[0].Subnets, broken.Groups[0].Subnets[2].LogicalID)
	assert.True(t, errors.As(VerifyNatPinning(broken), &incompleteErr))

	broken = out.clone()
	broken.RouteTables[0].TargetID = "Nowhere"
	assert.True(t, errors.As(VerifyNatPinning(broken), &incompleteErr))

	assert.NoError(t, VerifyNatPinning(out), "clones do not share route tables")
}

func TestWireRoutes_MissingAZs(t *testing.T) {
	_, err := WireRoutes(TopologyBuilder{VPC: "empty"}, threeTierRole(), "")
	var incompleteErr *IncompleteTopologyError
	assert.True(t, errors.As(err, &incompleteErr))
}
