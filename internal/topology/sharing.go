package topology

import (
	"fmt"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/internal/registry"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

// ResolveOUs looks up organizational units by name.
func ResolveOUs(reg *registry.Registry, share string, names []string) ([]Principal, error) {
	out := make([]Principal, 0, len(names))
	for _, name := range names {
		ou, ok := reg.OU(name)
		if !ok {
			return nil, &UnknownPrincipalError{Share: share, Principal: name}
		}
		out = append(out, Principal{Name: ou.Name, Kind: PrincipalOU, ID: reg.OUArn(ou)})
	}
	return out, nil
}

// ResolveAccount looks up a registry account by name.
func ResolveAccount(reg *registry.Registry, share, name string) (Principal, error) {
	acct, ok := reg.Account(name)
	if !ok {
		return Principal{}, &UnknownPrincipalError{Share: share, Principal: name}
	}
	return Principal{Name: acct.Name, Kind: PrincipalAccount, ID: acct.ID}, nil
}

// Share creates a resource share of subnets and one principal association
// per principal. Principals with the same id are granted once.
func Share(b TopologyBuilder, label string, subnets []string, principals []Principal, external bool) (TopologyBuilder, error) {
	if len(subnets) == 0 {
		return b, fmt.Errorf("share %s-%s has no subnets", b.VPC, label)
	}

	out := b.clone()
	share := ResourceShare{
		LogicalID: out.id(label, "ResourceShare", descriptor.NoAZ),
		Name:      fmt.Sprintf("%s-%s", out.VPC, label),
		Subnets:   append([]string(nil), subnets...),
		External:  external,
	}

	arns := make([]any, len(subnets))
	for i, id := range subnets {
		arns[i] = intrinsics.SubnetArn(id)
	}
	allowExternal := external
	if err := out.add(descriptor.Descriptor{
		LogicalID: share.LogicalID,
		Kind:      descriptor.KindResourceShare,
		Properties: descriptor.ResourceShare{
			Name:                    share.Name,
			ResourceArns:            arns,
			AllowExternalPrincipals: &allowExternal,
			Tags:                    intrinsics.Tags(share.Name, nil),
		},
		DependsOn: subnets,
	}); err != nil {
		return b, err
	}

	granted := make(map[string]bool, len(principals))
	for _, p := range principals {
		if granted[p.ID] {
			continue
		}
		granted[p.ID] = true

		if err := out.add(descriptor.Descriptor{
			LogicalID: out.id(label, "PrincipalAssociation"+descriptor.PascalCase(p.Name), descriptor.NoAZ),
			Kind:      descriptor.KindPrincipalAssociation,
			Properties: descriptor.PrincipalAssociation{
				ResourceShareArn: intrinsics.GetAtt{LogicalName: share.LogicalID, Attribute: "Arn"},
				Principal:        p.ID,
			},
			DependsOn: []string{share.LogicalID},
		}); err != nil {
			return b, err
		}
		share.Principals = append(share.Principals, p)
	}

	out.Shares = append(out.Shares, share)
	return out, nil
}

// sharePlan is a share whose principals have been resolved but which has not
// been created yet.
type sharePlan struct {
	category   Category
	principals []Principal
}

// ShareSubnets shares the role's shared categories according to policy.
// Every principal is resolved before any share is created, so an unknown
// principal leaves no share behind.
func ShareSubnets(b TopologyBuilder, role RoleSpec, reg *registry.Registry, owner registry.Account, region string, policy SharingPolicy) (TopologyBuilder, error) {
	var plans []sharePlan
	for _, cat := range role.Shares {
		var names []string
		if cat == CategoryTransit {
			if !policy.SharesTransit(owner.Role, region, reg.PrimaryRegion) {
				continue
			}
			names = []string{policy.TransitOU}
		} else {
			names = policy.Principals(owner.Role)
		}

		principals, err := ResolveOUs(reg, fmt.Sprintf("%s-%s", b.VPC, cat), names)
		if err != nil {
			return b, err
		}
		plans = append(plans, sharePlan{category: cat, principals: principals})
	}

	out := b
	for _, plan := range plans {
		group, ok := out.Group(plan.category)
		if !ok {
			return b, fmt.Errorf("share %s: vpc %s has no %s subnets", plan.category, b.VPC, plan.category)
		}
		var err error
		out, err = Share(out, string(plan.category), group.SubnetIDs(), plan.principals, false)
		if err != nil {
			return b, err
		}
	}
	return out, nil
}
