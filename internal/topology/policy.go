package topology

import (
	"github.com/lex00/wetwire-network-go/internal/registry"
)

// Policy holds the tables synthesis consults: which principals consume a
// share and which NACL rules each subnet category carries. DefaultPolicy
// returns the production tables; tests pass their own.
type Policy struct {
	Sharing SharingPolicy
	Nacls   map[Category]NaclPolicy
}

// SharingPolicy maps the role of the account owning a VPC to the
// organizational units its shared subnets are granted to.
type SharingPolicy struct {
	// ByRole lists OU names per owner role.
	ByRole map[registry.AccountRole][]string
	// Default applies to owner roles missing from ByRole.
	Default []string

	// TransitOU is the only OU transit subnets are shared with, and only
	// when the owner has TransitOwnerRole and the VPC is in the registry's
	// primary region.
	TransitOU        string
	TransitOwnerRole registry.AccountRole
}

// Principals returns the OU names for an owner role.
func (p SharingPolicy) Principals(owner registry.AccountRole) []string {
	if ous, ok := p.ByRole[owner]; ok {
		return append([]string(nil), ous...)
	}
	return append([]string(nil), p.Default...)
}

// SharesTransit reports whether transit subnets of a VPC owned by an account
// with the given role, in the given region, are shared.
func (p SharingPolicy) SharesTransit(owner registry.AccountRole, region, primaryRegion string) bool {
	return p.TransitOU != "" && owner == p.TransitOwnerRole && region == primaryRegion
}

// Protocol is an IP protocol number as NACL entries expect it.
type Protocol int

const (
	ProtocolAll Protocol = -1
	ProtocolTCP Protocol = 6
	ProtocolUDP Protocol = 17
)

// RuleAction is allow or deny.
type RuleAction string

const (
	Allow RuleAction = "allow"
	Deny  RuleAction = "deny"
)

// VPCCidr stands for the VPC's own primary CIDR in a NaclRule and is
// resolved when rules are applied.
const VPCCidr = "vpc"

// PortRange is an inclusive port range.
type PortRange struct {
	From int
	To   int
}

// NaclRule is one numbered rule.
type NaclRule struct {
	Number   int
	Egress   bool
	Protocol Protocol
	Action   RuleAction
	Cidr     string
	Ports    *PortRange
}

// NaclRuleSet is a named set of rules attached to one subnet group's ACL.
type NaclRuleSet struct {
	Name  string
	Rules []NaclRule
}

// NaclPolicy is the canonical rule set of a category plus rules specific to
// it that are merged ahead of the canonical ones.
type NaclPolicy struct {
	Base       []NaclRule
	Additional []NaclRule
}

// RuleSet returns the merged rule set for a category, or false if the
// category has no ACL of its own.
func (p Policy) RuleSet(cat Category) (NaclRuleSet, bool) {
	np, ok := p.Nacls[cat]
	if !ok {
		return NaclRuleSet{}, false
	}
	rules := make([]NaclRule, 0, len(np.Additional)+len(np.Base))
	rules = append(rules, np.Additional...)
	rules = append(rules, np.Base...)
	return NaclRuleSet{Name: string(cat), Rules: rules}, true
}

// OU names used by DefaultPolicy. The registry must define these.
const (
	OUInternalStage = "internal-stage"
	OUUAT           = "uat"
	OUProduction    = "production"
	OUTools         = "tools"
	OUSandbox       = "sandbox"
	OUDev           = "dev"
	OUPerformance   = "performance"
	OUQE            = "qe"
)

// DefaultPolicy returns a fresh copy of the production policy tables.
func DefaultPolicy() Policy {
	return Policy{
		Sharing: SharingPolicy{
			ByRole: map[registry.AccountRole][]string{
				registry.RoleProductionHub:    {OUInternalStage, OUUAT, OUProduction, OUTools},
				registry.RoleNonProductionHub: {OUSandbox, OUDev, OUPerformance, OUQE, OUTools},
			},
			Default:          []string{OUSandbox},
			TransitOU:        OUTools,
			TransitOwnerRole: registry.RoleProductionHub,
		},
		Nacls: map[Category]NaclPolicy{
			CategoryPublic: {
				Base: []NaclRule{
					{Number: 100, Protocol: ProtocolTCP, Action: Allow, Cidr: "0.0.0.0/0", Ports: &PortRange{From: 443, To: 443}},
					{Number: 110, Protocol: ProtocolTCP, Action: Allow, Cidr: "0.0.0.0/0", Ports: &PortRange{From: 80, To: 80}},
					{Number: 120, Protocol: ProtocolTCP, Action: Allow, Cidr: "0.0.0.0/0", Ports: &PortRange{From: 1024, To: 65535}},
					{Number: 100, Egress: true, Protocol: ProtocolAll, Action: Allow, Cidr: "0.0.0.0/0"},
				},
			},
			CategoryApp: {
				Base: []NaclRule{
					{Number: 100, Protocol: ProtocolAll, Action: Allow, Cidr: VPCCidr},
					{Number: 110, Protocol: ProtocolTCP, Action: Allow, Cidr: "0.0.0.0/0", Ports: &PortRange{From: 1024, To: 65535}},
					{Number: 100, Egress: true, Protocol: ProtocolAll, Action: Allow, Cidr: "0.0.0.0/0"},
				},
				Additional: []NaclRule{
					{Number: 99, Protocol: ProtocolTCP, Action: Allow, Cidr: VPCCidr, Ports: &PortRange{From: 1521, To: 1521}},
				},
			},
			CategoryData: {
				Base: []NaclRule{
					{Number: 100, Protocol: ProtocolAll, Action: Allow, Cidr: VPCCidr},
					{Number: 100, Egress: true, Protocol: ProtocolAll, Action: Allow, Cidr: VPCCidr},
				},
			},
		},
	}
}
