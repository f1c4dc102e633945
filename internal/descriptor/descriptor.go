// Package descriptor defines the typed resource descriptors emitted by network
// synthesis and the dependency graph that holds them.
//
// A descriptor is a CloudFormation-shaped resource: a logical id, a type, a
// typed property struct and explicit dependency edges. Logical ids are a pure
// function of (VPC name, category, resource kind, AZ index), so synthesizing
// the same input twice yields identical ids.
package descriptor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Kind is the CloudFormation resource type of a descriptor.
type Kind string

const (
	KindVPC                   Kind = "AWS::EC2::VPC"
	KindVPCCidrBlock          Kind = "AWS::EC2::VPCCidrBlock"
	KindSubnet                Kind = "AWS::EC2::Subnet"
	KindRouteTable            Kind = "AWS::EC2::RouteTable"
	KindRoute                 Kind = "AWS::EC2::Route"
	KindRouteTableAssociation Kind = "AWS::EC2::SubnetRouteTableAssociation"
	KindInternetGateway       Kind = "AWS::EC2::InternetGateway"
	KindGatewayAttachment     Kind = "AWS::EC2::VPCGatewayAttachment"
	KindEIP                   Kind = "AWS::EC2::EIP"
	KindNatGateway            Kind = "AWS::EC2::NatGateway"
	KindTransitGatewayAttach  Kind = "AWS::EC2::TransitGatewayAttachment"
	KindNetworkAcl            Kind = "AWS::EC2::NetworkAcl"
	KindNetworkAclEntry       Kind = "AWS::EC2::NetworkAclEntry"
	KindNetworkAclAssociation Kind = "AWS::EC2::SubnetNetworkAclAssociation"
	KindResourceShare         Kind = "AWS::RAM::ResourceShare"
	// KindPrincipalAssociation grants one principal access to a share. It has
	// no CloudFormation resource of its own; templates fold it into the
	// Principals list of its share.
	KindPrincipalAssociation Kind = "AWS::RAM::PrincipalAssociation"
)

// Service returns the service segment of the kind, e.g. "EC2".
func (k Kind) Service() string {
	parts := strings.Split(string(k), "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

// Short returns the last segment of the kind, e.g. "Subnet".
func (k Kind) Short() string {
	parts := strings.Split(string(k), "::")
	return parts[len(parts)-1]
}

// Descriptor is one resource in the synthesized graph.
type Descriptor struct {
	// LogicalID is the deterministic identifier of the resource.
	LogicalID string
	// Kind is the CloudFormation type.
	Kind Kind
	// Properties is one of the typed property structs in this package.
	Properties any
	// DependsOn lists logical ids this resource references or must follow.
	DependsOn []string
}

// NoAZ marks VPC-wide resources in ID.
const NoAZ = -1

// ID builds a logical id from the VPC name, an optional category, the
// resource kind and an AZ index (NoAZ for VPC-wide resources).
//
//	ID("shared-prod", "transit", "Subnet", 0) == "SharedProdTransitSubnetAz0"
func ID(vpc, category, kind string, az int) string {
	var sb strings.Builder
	sb.WriteString(PascalCase(vpc))
	sb.WriteString(PascalCase(category))
	sb.WriteString(PascalCase(kind))
	if az != NoAZ {
		sb.WriteString("Az")
		sb.WriteString(strconv.Itoa(az))
	}
	return sb.String()
}

// PascalCase converts kebab, snake or space separated words into an
// alphanumeric PascalCase identifier.
//
//	PascalCase("shared-prod_use1") == "SharedProdUse1"
func PascalCase(s string) string {
	var result strings.Builder
	capitalizeNext := true

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			capitalizeNext = true
			continue
		}
		if r > unicode.MaxASCII {
			continue
		}
		if capitalizeNext {
			result.WriteRune(unicode.ToUpper(r))
			capitalizeNext = false
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// Graph is an insertion-ordered set of descriptors keyed by logical id.
type Graph struct {
	order []string
	byID  map[string]Descriptor
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byID: make(map[string]Descriptor)}
}

// Add inserts a descriptor. Logical ids must be unique.
func (g *Graph) Add(d Descriptor) error {
	if d.LogicalID == "" {
		return fmt.Errorf("descriptor of kind %s has no logical id", d.Kind)
	}
	if _, exists := g.byID[d.LogicalID]; exists {
		return fmt.Errorf("duplicate logical id %q", d.LogicalID)
	}
	deps := append([]string(nil), d.DependsOn...)
	sort.Strings(deps)
	d.DependsOn = dedupe(deps)

	g.byID[d.LogicalID] = d
	g.order = append(g.order, d.LogicalID)
	return nil
}

// Get returns the descriptor with the given logical id.
func (g *Graph) Get(id string) (Descriptor, bool) {
	d, ok := g.byID[id]
	return d, ok
}

// Len returns the number of descriptors.
func (g *Graph) Len() int {
	return len(g.order)
}

// IDs returns logical ids in insertion order.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Descriptors returns all descriptors in insertion order.
func (g *Graph) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.byID[id])
	}
	return out
}

// OfKind returns descriptors of one kind in insertion order.
func (g *Graph) OfKind(kind Kind) []Descriptor {
	var out []Descriptor
	for _, id := range g.order {
		if d := g.byID[id]; d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns an independent copy of the graph. Descriptors are values and
// their property structs are never mutated after insertion, so a shallow copy
// of the index is sufficient.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		order: append([]string(nil), g.order...),
		byID:  make(map[string]Descriptor, len(g.byID)),
	}
	for k, v := range g.byID {
		c.byID[k] = v
	}
	return c
}

// Validate checks that every dependency edge points at a descriptor in the
// graph.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, dep := range g.byID[id].DependsOn {
			if _, ok := g.byID[dep]; !ok {
				return fmt.Errorf("%s depends on unknown resource %q", id, dep)
			}
		}
	}
	return nil
}

func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
