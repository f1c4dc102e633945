package topology

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/lex00/wetwire-network-go/internal/cidr"
)

// BuildGroup creates one subnet per AZ for spec, taking cidrs in AZ order.
// cidrs must have exactly one entry per AZ.
func BuildGroup(b TopologyBuilder, spec GroupSpec, cidrs []netip.Prefix) (TopologyBuilder, error) {
	if len(cidrs) != len(b.AZs) {
		return b, invalidTopology("group %s has %d cidrs for %d availability zones", spec.Category, len(cidrs), len(b.AZs))
	}
	if _, exists := b.Group(spec.Category); exists {
		return b, fmt.Errorf("group %s already built", spec.Category)
	}
	if cidr.Overlaps(b.claimedBlocks(), cidrs) {
		return b, invalidTopology("group %s overlaps subnets already in vpc %s", spec.Category, b.VPC)
	}

	out := b.clone()
	group := SubnetGroup{
		Category:   spec.Category,
		Purpose:    spec.Purpose,
		Visibility: spec.Visibility,
	}

	for i, c := range cidrs {
		s := Subnet{
			LogicalID:  out.id(string(spec.Category), "Subnet", i),
			Category:   spec.Category,
			AZIndex:    i,
			AZ:         out.AZs[i],
			Cidr:       c.Masked(),
			Visibility: spec.Visibility,
		}
		tags := map[string]string{
			"network:category":   string(spec.Category),
			"network:purpose":    spec.Purpose,
			"network:az-index":   strconv.Itoa(i),
			"network:visibility": string(spec.Visibility),
		}
		if spec.Visibility == Public {
			tags["network:publicly-addressable"] = "true"
		}
		if err := out.addSubnet(s, string(spec.Category), tags, spec.Visibility == Public); err != nil {
			return b, err
		}
		group.Subnets = append(group.Subnets, s)
	}

	out.Groups = append(out.Groups, group)
	return out, nil
}

// AllocateGroups carves every group of role from the VPC CIDR. Groups take
// consecutive index ranges of len(AZs) blocks each, in declaration order.
func AllocateGroups(b TopologyBuilder, role RoleSpec, subdivisionBits int) (TopologyBuilder, error) {
	out := b
	reservations := make([]cidr.NetworkCidr, 0, len(role.Groups))
	for _, g := range out.Groups {
		if g.Reservation.Count > 0 {
			reservations = append(reservations, g.Reservation)
		}
	}

	for _, spec := range role.Groups {
		res := cidr.NetworkCidr{
			Base:            out.Cidr,
			SubdivisionBits: subdivisionBits,
			Start:           out.nextIndex,
			Count:           len(out.AZs),
			Owner:           string(spec.Category),
		}
		blocks, err := res.Blocks()
		if err != nil {
			return b, fmt.Errorf("group %s: %w", spec.Category, err)
		}

		out, err = BuildGroup(out, spec, blocks)
		if err != nil {
			return b, err
		}
		out.Groups[len(out.Groups)-1].Reservation = res
		out.nextIndex = res.End()
		reservations = append(reservations, res)
	}

	if err := cidr.CheckReservations(reservations); err != nil {
		return b, err
	}
	return out, nil
}
