// Package topology synthesizes VPC network topologies as descriptor graphs.
//
// A synthesis pass runs a fixed sequence of stages over a TopologyBuilder
// value: subnet groups are carved from the VPC CIDR, route tables and
// gateways are wired, NACL rule sets applied, subnets shared with consuming
// accounts, and finally customer subnets allocated. Each stage takes a
// builder and returns a new one; a failing stage aborts the pass and no
// descriptors are returned.
//
// The package performs no I/O. Account data, customer definitions and policy
// tables are passed in by the caller.
package topology

import (
	"net/netip"

	"github.com/lex00/wetwire-network-go/internal/cidr"
)

// Category names the purpose of a subnet group.
type Category string

const (
	CategoryTransit      Category = "transit"
	CategoryApp          Category = "app"
	CategoryData         Category = "data"
	CategoryPublic       Category = "public"
	CategoryCustomerEdge Category = "customer-edge"
	CategoryADData       Category = "ad-data"
	CategoryManagement   Category = "management"
	CategoryInspection   Category = "inspection"

	// CategoryCustomer labels subnets carved for a single customer. It is
	// never declared as a group.
	CategoryCustomer Category = "customer"
)

var knownCategories = []Category{
	CategoryTransit, CategoryApp, CategoryData, CategoryPublic, CategoryCustomerEdge,
	CategoryADData, CategoryManagement, CategoryInspection, CategoryCustomer,
}

// Visibility says whether a subnet group is internet addressable.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Subnet is one subnet in one availability zone.
type Subnet struct {
	LogicalID  string
	Category   Category
	AZIndex    int
	AZ         string
	Cidr       netip.Prefix
	Visibility Visibility
}

// SubnetGroup is the set of subnets of one category, one per AZ, in AZ order.
type SubnetGroup struct {
	Category    Category
	Purpose     string
	Visibility  Visibility
	Reservation cidr.NetworkCidr
	Subnets     []Subnet
}

// SubnetIDs returns the logical ids of the group's subnets in AZ order.
func (g SubnetGroup) SubnetIDs() []string {
	ids := make([]string, len(g.Subnets))
	for i, s := range g.Subnets {
		ids[i] = s.LogicalID
	}
	return ids
}

// TargetKind is the kind of a route table's default route target.
type TargetKind string

const (
	TargetNone            TargetKind = "none"
	TargetInternetGateway TargetKind = "internet-gateway"
	TargetNatGateway      TargetKind = "nat-gateway"
	TargetTransitGateway  TargetKind = "transit-gateway"
)

// RouteTableKind distinguishes the route table topologies.
type RouteTableKind string

const (
	RouteTablePublic       RouteTableKind = "public"
	RouteTablePrivate      RouteTableKind = "private"
	RouteTableCustomerEdge RouteTableKind = "customer-edge"
	RouteTableCustomer     RouteTableKind = "customer"
)

// RouteTable is a route table with its associated subnets and default route.
type RouteTable struct {
	LogicalID string
	Kind      RouteTableKind
	// AZIndex is the AZ every associated subnet lives in, or NoAZ for the
	// shared public table.
	AZIndex int
	Subnets []string
	Target  TargetKind
	// TargetID is the logical id of the gateway, or the transit gateway id.
	TargetID string
}

// NatGateway is one NAT gateway pinned to an AZ.
type NatGateway struct {
	LogicalID string
	AZIndex   int
	SubnetID  string
	// EIP is the logical id of the elastic IP; empty for private NAT gateways.
	EIP     string
	Private bool
	// Edge marks NAT gateways serving customer traffic.
	Edge bool
}

// NetworkAcl is a subnet group's ACL and the rules applied to it.
type NetworkAcl struct {
	LogicalID string
	Category  Category
	Rules     NaclRuleSet
}

// PrincipalKind is the kind of a sharing principal.
type PrincipalKind string

const (
	PrincipalOU      PrincipalKind = "organizational-unit"
	PrincipalAccount PrincipalKind = "account"
)

// Principal is a resolved consumer of a resource share.
type Principal struct {
	Name string
	Kind PrincipalKind
	// ID is the account id or the organizational unit ARN.
	ID string
}

// ResourceShare grants a set of principals access to subnets.
type ResourceShare struct {
	LogicalID  string
	Name       string
	Subnets    []string
	Principals []Principal
	// External is set for shares whose principals may sit outside the
	// organization.
	External bool
}

// CustomerSubnet is a subnet carved for one customer.
type CustomerSubnet struct {
	Subnet
	Customer string
	AZLabel  string
}

// Output is a value the environment assembly layer reads back from the
// synthesized template.
type Output struct {
	LogicalID   string
	Description string
	Value       any
	ExportName  string
}
