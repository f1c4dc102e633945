package topology

import (
	"fmt"
	"sort"
)

// Egress selects how private route tables reach the internet.
type Egress string

const (
	// EgressNAT routes each AZ's private subnets through a NAT gateway in
	// the same AZ.
	EgressNAT Egress = "nat"
	// EgressTransitGateway routes private subnets to a transit gateway
	// attached on the transit subnets.
	EgressTransitGateway Egress = "transit-gateway"
	// EgressNone leaves private route tables without a default route.
	EgressNone Egress = "none"
)

// GroupSpec declares one subnet group of a role.
type GroupSpec struct {
	Category   Category
	Purpose    string
	Visibility Visibility
}

// RoleSpec is the recipe for one kind of VPC: the subnet groups it carves, in
// CIDR order, and its routing and sharing policy.
type RoleSpec struct {
	Name string
	// Groups are carved from the VPC CIDR in this order, each taking one
	// block per AZ.
	Groups []GroupSpec
	// SubdivisionBits splits the VPC CIDR into 2^bits blocks.
	SubdivisionBits int
	Egress          Egress
	// CustomerEdge wires the customer-edge group to its own per-AZ route
	// tables behind private NAT gateways.
	CustomerEdge bool
	// CustomerSubnets allocates per-customer subnets from customer
	// definitions.
	CustomerSubnets bool
	// Shares lists the categories shared with consuming accounts.
	Shares []Category
}

// Group returns the declaration for a category.
func (r RoleSpec) Group(cat Category) (GroupSpec, bool) {
	for _, g := range r.Groups {
		if g.Category == cat {
			return g, true
		}
	}
	return GroupSpec{}, false
}

// Validate checks the recipe itself, independent of any CIDR.
func (r RoleSpec) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("role has no name")
	}
	if len(r.Groups) == 0 {
		return fmt.Errorf("role %s declares no subnet groups", r.Name)
	}
	seen := make(map[Category]bool, len(r.Groups))
	for _, g := range r.Groups {
		if seen[g.Category] {
			return fmt.Errorf("role %s declares %s twice", r.Name, g.Category)
		}
		seen[g.Category] = true
		if g.Visibility != Public && g.Visibility != Private {
			return fmt.Errorf("role %s: group %s has visibility %q", r.Name, g.Category, g.Visibility)
		}
	}
	switch r.Egress {
	case EgressNAT, EgressNone:
	case EgressTransitGateway:
		if !seen[CategoryTransit] {
			return fmt.Errorf("role %s: transit gateway egress needs a transit group", r.Name)
		}
	default:
		return fmt.Errorf("role %s: unknown egress %q", r.Name, r.Egress)
	}
	if r.CustomerEdge && !seen[CategoryCustomerEdge] {
		return fmt.Errorf("role %s: customer edge routing needs a customer-edge group", r.Name)
	}
	if r.CustomerSubnets && !r.CustomerEdge {
		return fmt.Errorf("role %s: customer subnets need customer edge routing", r.Name)
	}
	for _, c := range r.Shares {
		if !seen[c] {
			return fmt.Errorf("role %s shares %s but does not declare it", r.Name, c)
		}
	}
	return nil
}

var (
	transitGroup      = GroupSpec{Category: CategoryTransit, Purpose: "transit gateway attachments", Visibility: Private}
	appGroup          = GroupSpec{Category: CategoryApp, Purpose: "application workloads", Visibility: Private}
	dataGroup         = GroupSpec{Category: CategoryData, Purpose: "databases and storage", Visibility: Private}
	publicGroup       = GroupSpec{Category: CategoryPublic, Purpose: "internet ingress", Visibility: Public}
	customerEdgeGroup = GroupSpec{Category: CategoryCustomerEdge, Purpose: "customer connectivity", Visibility: Private}
	adDataGroup       = GroupSpec{Category: CategoryADData, Purpose: "directory services", Visibility: Private}
	managementGroup   = GroupSpec{Category: CategoryManagement, Purpose: "management and bastion hosts", Visibility: Private}
	inspectionGroup   = GroupSpec{Category: CategoryInspection, Purpose: "traffic inspection appliances", Visibility: Private}
)

// GatewayRole is the hub VPC: public ingress, NAT egress, customer edge and
// customer subnets, sharing its public and transit subnets.
func GatewayRole() RoleSpec {
	return RoleSpec{
		Name:            "gateway",
		Groups:          []GroupSpec{publicGroup, transitGroup, appGroup, dataGroup, customerEdgeGroup},
		SubdivisionBits: 4,
		Egress:          EgressNAT,
		CustomerEdge:    true,
		CustomerSubnets: true,
		Shares:          []Category{CategoryPublic, CategoryTransit},
	}
}

// SpokeRole is a workload VPC that egresses through the transit gateway and
// shares its app subnets.
func SpokeRole() RoleSpec {
	return RoleSpec{
		Name:            "spoke",
		Groups:          []GroupSpec{transitGroup, appGroup, dataGroup},
		SubdivisionBits: 4,
		Egress:          EgressTransitGateway,
		Shares:          []Category{CategoryApp},
	}
}

// IsolatedRole has no egress and no sharing.
func IsolatedRole() RoleSpec {
	return RoleSpec{
		Name:            "isolated",
		Groups:          []GroupSpec{appGroup, dataGroup},
		SubdivisionBits: 4,
		Egress:          EgressNone,
	}
}

// ToolsRole hosts shared tooling, directory services and management hosts.
func ToolsRole() RoleSpec {
	return RoleSpec{
		Name:            "tools",
		Groups:          []GroupSpec{publicGroup, transitGroup, appGroup, dataGroup, managementGroup, adDataGroup},
		SubdivisionBits: 5,
		Egress:          EgressNAT,
	}
}

// InspectionRole carries inspection appliances between the transit and
// public subnets.
func InspectionRole() RoleSpec {
	return RoleSpec{
		Name:            "inspection",
		Groups:          []GroupSpec{transitGroup, inspectionGroup, publicGroup},
		SubdivisionBits: 4,
		Egress:          EgressNAT,
	}
}

var roles = map[string]func() RoleSpec{
	"gateway":    GatewayRole,
	"spoke":      SpokeRole,
	"isolated":   IsolatedRole,
	"tools":      ToolsRole,
	"inspection": InspectionRole,
}

// RoleByName returns the built-in role with the given name.
func RoleByName(name string) (RoleSpec, error) {
	fn, ok := roles[name]
	if !ok {
		return RoleSpec{}, fmt.Errorf("unknown vpc role %q (known: %v)", name, RoleNames())
	}
	return fn(), nil
}

// RoleNames lists the built-in roles, sorted.
func RoleNames() []string {
	names := make([]string, 0, len(roles))
	for n := range roles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
