package topology

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

const (
	minRuleNumber = 1
	maxRuleNumber = 32766
)

// ApplyRules attaches a rule set to the ACL of one subnet group and
// associates the group's subnets with it. Rule numbers must be unique per
// direction.
func ApplyRules(b TopologyBuilder, cat Category, rs NaclRuleSet) (TopologyBuilder, error) {
	group, ok := b.Group(cat)
	if !ok {
		return b, fmt.Errorf("network acl %s: vpc %s has no %s subnets", rs.Name, b.VPC, cat)
	}
	aclID := b.id(string(cat), "NetworkAcl", descriptor.NoAZ)

	rules, err := resolveRules(aclID, rs.Rules, b.Cidr)
	if err != nil {
		return b, err
	}

	out := b.clone()
	if err := out.add(descriptor.Descriptor{
		LogicalID: aclID,
		Kind:      descriptor.KindNetworkAcl,
		Properties: descriptor.NetworkAcl{
			VpcId: out.vpcRef(),
			Tags:  intrinsics.Tags(fmt.Sprintf("%s-%s-nacl", out.VPC, cat), map[string]string{"network:rule-set": rs.Name}),
		},
		DependsOn: []string{out.VPCID},
	}); err != nil {
		return b, err
	}

	for _, r := range rules {
		dir := "Ingress"
		if r.Egress {
			dir = "Egress"
		}
		entry := descriptor.NetworkAclEntry{
			NetworkAclId: intrinsics.Ref{LogicalName: aclID},
			RuleNumber:   r.Number,
			Protocol:     int(r.Protocol),
			RuleAction:   string(r.Action),
			Egress:       r.Egress,
			CidrBlock:    r.Cidr,
		}
		if r.Ports != nil {
			entry.PortRange = &descriptor.PortRange{From: r.Ports.From, To: r.Ports.To}
		}
		if err := out.add(descriptor.Descriptor{
			LogicalID:  fmt.Sprintf("%s%sRule%d", aclID, dir, r.Number),
			Kind:       descriptor.KindNetworkAclEntry,
			Properties: entry,
			DependsOn:  []string{aclID},
		}); err != nil {
			return b, err
		}
	}

	for _, s := range group.Subnets {
		if err := out.add(descriptor.Descriptor{
			LogicalID: s.LogicalID + "NetworkAclAssociation",
			Kind:      descriptor.KindNetworkAclAssociation,
			Properties: descriptor.SubnetNetworkAclAssociation{
				SubnetId:     intrinsics.Ref{LogicalName: s.LogicalID},
				NetworkAclId: intrinsics.Ref{LogicalName: aclID},
			},
			DependsOn: []string{s.LogicalID, aclID},
		}); err != nil {
			return b, err
		}
	}

	out.Acls = append(out.Acls, NetworkAcl{
		LogicalID: aclID,
		Category:  cat,
		Rules:     NaclRuleSet{Name: rs.Name, Rules: rules},
	})
	return out, nil
}

// ApplyNacls applies the policy's rule set to every group that has one.
func ApplyNacls(b TopologyBuilder, policy Policy) (TopologyBuilder, error) {
	out := b
	for _, g := range b.Groups {
		rs, ok := policy.RuleSet(g.Category)
		if !ok {
			continue
		}
		var err error
		out, err = ApplyRules(out, g.Category, rs)
		if err != nil {
			return b, err
		}
	}
	return out, nil
}

// resolveRules validates rules, substitutes the VPC CIDR and orders them by
// direction then number.
func resolveRules(aclID string, rules []NaclRule, vpcCidr netip.Prefix) ([]NaclRule, error) {
	type key struct {
		egress bool
		number int
	}
	seen := make(map[key]bool, len(rules))
	out := make([]NaclRule, 0, len(rules))

	for _, r := range rules {
		k := key{egress: r.Egress, number: r.Number}
		if seen[k] {
			return nil, &DuplicateRuleNumberError{Acl: aclID, RuleNumber: r.Number, Egress: r.Egress}
		}
		seen[k] = true

		if r.Number < minRuleNumber || r.Number > maxRuleNumber {
			return nil, fmt.Errorf("network acl %s: rule number %d out of range", aclID, r.Number)
		}
		if r.Action != Allow && r.Action != Deny {
			return nil, fmt.Errorf("network acl %s: rule %d has action %q", aclID, r.Number, r.Action)
		}
		if (r.Protocol == ProtocolTCP || r.Protocol == ProtocolUDP) && r.Ports == nil {
			return nil, fmt.Errorf("network acl %s: rule %d needs a port range", aclID, r.Number)
		}
		if r.Ports != nil && (r.Ports.From < 0 || r.Ports.To > 65535 || r.Ports.From > r.Ports.To) {
			return nil, fmt.Errorf("network acl %s: rule %d has port range %d-%d", aclID, r.Number, r.Ports.From, r.Ports.To)
		}

		if r.Cidr == VPCCidr {
			r.Cidr = vpcCidr.String()
		} else {
			p, err := netip.ParsePrefix(r.Cidr)
			if err != nil {
				return nil, fmt.Errorf("network acl %s: rule %d: %w", aclID, r.Number, err)
			}
			r.Cidr = p.Masked().String()
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Egress != out[j].Egress {
			return !out[i].Egress
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}
