package topology

import (
	"net/netip"
	"sort"
	"strconv"

	"github.com/lex00/wetwire-network-go/internal/cidr"
	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/internal/registry"
)

// customerPlan is a customer whose CIDRs and principals have been checked.
type customerPlan struct {
	def        registry.CustomerDefinition
	cidrs      []netip.Prefix
	principals []Principal
}

// AllocateCustomerSubnets carves each customer's reserved CIDRs for key into
// subnets, routes them through the customer-edge NAT gateway of their AZ,
// indexes them by customer and shares them with the customer's accounts.
// Customers without a reservation for key are skipped, but at least one
// customer must have one.
func AllocateCustomerSubnets(b TopologyBuilder, customers []registry.CustomerDefinition, key registry.CidrKey, reg *registry.Registry) (TopologyBuilder, error) {
	if len(customers) == 0 {
		return b, &MissingCustomerDefinitionError{VPC: b.VPC, Key: key.String()}
	}

	defs := append([]registry.CustomerDefinition(nil), customers...)
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	if err := checkCustomerLabels(b, defs); err != nil {
		return b, err
	}

	claimed := b.claimedBlocks()
	var plans []customerPlan
	for _, def := range defs {
		cidrs, found, err := def.Reservation(key)
		if err != nil {
			return b, err
		}
		if !found {
			continue
		}
		if len(cidrs) > len(b.AZs) {
			return b, invalidTopology("customer %s reserves %d cidrs for %s but vpc %s spans %d availability zones",
				def.Name, len(cidrs), key, b.VPC, len(b.AZs))
		}
		for _, c := range cidrs {
			if _, ok := b.cidrHome(c); !ok {
				return b, &InvalidTopologyError{Base: c, Reason: "customer " + def.Name + " cidr lies outside vpc " + b.VPC}
			}
		}
		if cidr.Overlaps(claimed, cidrs) || overlapsWithin(cidrs) {
			return b, invalidTopology("customer %s cidrs for %s overlap subnets already in vpc %s", def.Name, key, b.VPC)
		}
		claimed = append(claimed, cidrs...)

		principals, err := customerPrincipals(reg, b.VPC, def)
		if err != nil {
			return b, err
		}
		plans = append(plans, customerPlan{def: def, cidrs: cidrs, principals: principals})
	}
	if len(plans) == 0 {
		return b, &MissingCustomerDefinitionError{VPC: b.VPC, Key: key.String()}
	}

	out := b.clone()
	for _, plan := range plans {
		if err := out.addCustomer(plan); err != nil {
			return b, err
		}
		var err error
		subnets := out.Customers[plan.def.Name]
		ids := make([]string, len(subnets))
		for i, s := range subnets {
			ids[i] = s.LogicalID
		}
		out, err = Share(out, customerLabel(plan.def.Name), ids, plan.principals, true)
		if err != nil {
			return b, err
		}
	}
	return out, nil
}

// customerPrincipals returns the customer's own accounts plus, for the one
// customer named by the registry's cross-tenant exception, that exception's
// account.
func customerPrincipals(reg *registry.Registry, vpc string, def registry.CustomerDefinition) ([]Principal, error) {
	share := vpc + "-" + customerLabel(def.Name)
	principals := make([]Principal, 0, len(def.Accounts)+1)
	for _, id := range def.Accounts {
		principals = append(principals, Principal{Name: id, Kind: PrincipalAccount, ID: id})
	}

	if reg != nil && reg.CrossTenant.Customer != "" && def.Name == reg.CrossTenant.Customer {
		p, err := ResolveAccount(reg, share, reg.CrossTenant.Account)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	return principals, nil
}

func (b *TopologyBuilder) addCustomer(plan customerPlan) error {
	label := customerLabel(plan.def.Name)
	subnets := make([]CustomerSubnet, 0, len(plan.cidrs))

	for az, c := range plan.cidrs {
		s := CustomerSubnet{
			Subnet: Subnet{
				LogicalID:  b.id(label, "Subnet", az),
				Category:   CategoryCustomer,
				AZIndex:    az,
				AZ:         b.AZs[az],
				Cidr:       c,
				Visibility: Private,
			},
			Customer: plan.def.Name,
			AZLabel:  b.AZs[az],
		}
		tags := map[string]string{
			"network:category":   string(CategoryCustomer),
			"network:customer":   plan.def.Name,
			"network:az-index":   strconv.Itoa(az),
			"network:visibility": string(Private),
		}
		if err := b.addSubnet(s.Subnet, label, tags, false); err != nil {
			return err
		}

		nat, ok := b.natGateway(az, true)
		if !ok {
			return incomplete(b.VPC, "customer %s has a subnet in %s but there is no customer-edge nat gateway there", plan.def.Name, b.AZs[az])
		}
		if err := b.addRouteTable(RouteTable{
			LogicalID: b.id(label, "RouteTable", az),
			Kind:      RouteTableCustomer,
			AZIndex:   az,
			Subnets:   []string{s.LogicalID},
			Target:    TargetNatGateway,
			TargetID:  nat.LogicalID,
		}, label, nil); err != nil {
			return err
		}
		subnets = append(subnets, s)
	}

	b.Customers[plan.def.Name] = subnets
	return VerifyNatPinning(*b)
}

func customerLabel(name string) string {
	return "customer-" + name
}

// checkCustomerLabels rejects customer names that cannot yield unique
// logical ids, including names that fold into a subnet category's prefix.
func checkCustomerLabels(b TopologyBuilder, defs []registry.CustomerDefinition) error {
	taken := make(map[string]string)
	for _, c := range knownCategories {
		taken[descriptor.PascalCase(string(c))] = "category " + string(c)
	}
	for _, g := range b.Groups {
		taken[descriptor.PascalCase(string(g.Category))] = "category " + string(g.Category)
	}

	for _, def := range defs {
		if descriptor.PascalCase(def.Name) == "" {
			return invalidTopology("customer %q has no letters or digits to build logical ids from", def.Name)
		}
		label := descriptor.PascalCase(customerLabel(def.Name))
		if owner, ok := taken[label]; ok {
			return invalidTopology("customer %q in vpc %s produces logical ids %s* already used by %s", def.Name, b.VPC, label, owner)
		}
		taken[label] = "customer " + def.Name
	}
	return nil
}

func overlapsWithin(prefixes []netip.Prefix) bool {
	for i := range prefixes {
		for j := i + 1; j < len(prefixes); j++ {
			if prefixes[i].Overlaps(prefixes[j]) {
				return true
			}
		}
	}
	return false
}
