// Package cidr subdivides IPv4 CIDR blocks into equally sized, index-addressed blocks.
//
// A VPC CIDR is split into 2^bits blocks. Subnet groups reserve a contiguous
// index range of those blocks, one block per availability zone:
//
//	base 10.0.0.0/16, bits 4 -> 16 blocks of /20
//	Partition(base, 4, 3, 3) -> 10.0.48.0/20, 10.0.64.0/20, 10.0.80.0/20
package cidr

import (
	"fmt"
	"net/netip"
	"sort"
)

// InvalidTopologyError reports a CIDR that cannot hold the requested blocks.
type InvalidTopologyError struct {
	Base   netip.Prefix
	Reason string
}

func (e *InvalidTopologyError) Error() string {
	if e.Base.IsValid() {
		return fmt.Sprintf("invalid topology: %s: %s", e.Base, e.Reason)
	}
	return "invalid topology: " + e.Reason
}

func invalid(base netip.Prefix, format string, args ...any) error {
	return &InvalidTopologyError{Base: base, Reason: fmt.Sprintf(format, args...)}
}

// Partition returns count blocks of size base/2^subdivisionBits starting at
// block index startIndex.
func Partition(base netip.Prefix, subdivisionBits, startIndex, count int) ([]netip.Prefix, error) {
	if !base.IsValid() {
		return nil, invalid(base, "base CIDR is not valid")
	}
	if !base.Addr().Is4() {
		return nil, invalid(base, "only IPv4 base CIDRs are supported")
	}
	if subdivisionBits < 0 || startIndex < 0 || count < 0 {
		return nil, invalid(base, "negative subdivision (bits=%d start=%d count=%d)", subdivisionBits, startIndex, count)
	}

	base = base.Masked()
	newBits := base.Bits() + subdivisionBits
	if newBits > 32 {
		return nil, invalid(base, "cannot subdivide by %d bits (would be /%d)", subdivisionBits, newBits)
	}

	capacity := uint64(1) << uint(subdivisionBits)
	if uint64(startIndex)+uint64(count) > capacity {
		return nil, invalid(base, "needs %d blocks of /%d from index %d but only %d fit", count, newBits, startIndex, capacity)
	}

	start := addrToUint(base.Addr())
	size := uint64(1) << uint(32-newBits)

	blocks := make([]netip.Prefix, 0, count)
	for i := 0; i < count; i++ {
		addr := uintToAddr(uint32(uint64(start) + (uint64(startIndex)+uint64(i))*size))
		blocks = append(blocks, netip.PrefixFrom(addr, newBits))
	}
	return blocks, nil
}

// PartitionToSize is Partition expressed as a target prefix length instead of
// a number of subdivision bits.
func PartitionToSize(base netip.Prefix, prefixLen, startIndex, count int) ([]netip.Prefix, error) {
	if !base.IsValid() {
		return nil, invalid(base, "base CIDR is not valid")
	}
	if prefixLen < base.Bits() {
		return nil, invalid(base, "block size /%d is larger than the base", prefixLen)
	}
	return Partition(base, prefixLen-base.Bits(), startIndex, count)
}

// NetworkCidr is a reserved index range of a subdivided base CIDR.
type NetworkCidr struct {
	Base            netip.Prefix
	SubdivisionBits int
	Start           int
	Count           int
	Owner           string
}

// End returns the first index after the reservation.
func (n NetworkCidr) End() int {
	return n.Start + n.Count
}

// Blocks returns the CIDR blocks covered by the reservation.
func (n NetworkCidr) Blocks() ([]netip.Prefix, error) {
	return Partition(n.Base, n.SubdivisionBits, n.Start, n.Count)
}

func (n NetworkCidr) String() string {
	return fmt.Sprintf("%s[%d..%d)/+%d", n.Base, n.Start, n.End(), n.SubdivisionBits)
}

// CheckReservations verifies that no two reservations claim overlapping
// address space.
func CheckReservations(reservations []NetworkCidr) error {
	type span struct {
		res    NetworkCidr
		blocks []netip.Prefix
	}

	spans := make([]span, 0, len(reservations))
	for _, r := range reservations {
		blocks, err := r.Blocks()
		if err != nil {
			return err
		}
		spans = append(spans, span{res: r, blocks: blocks})
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if prefixesOverlap(spans[i].blocks, spans[j].blocks) {
				return invalid(spans[i].res.Base, "reservation %q %s overlaps %q %s",
					spans[i].res.Owner, spans[i].res, spans[j].res.Owner, spans[j].res)
			}
		}
	}
	return nil
}

// Overlaps reports whether any prefix in a overlaps any prefix in b.
func Overlaps(a, b []netip.Prefix) bool {
	return prefixesOverlap(a, b)
}

func prefixesOverlap(a, b []netip.Prefix) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Overlaps(y) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner netip.Prefix) bool {
	return outer.Bits() <= inner.Bits() && outer.Contains(inner.Masked().Addr())
}

// Sort orders prefixes by address, then by prefix length.
func Sort(prefixes []netip.Prefix) {
	sort.Slice(prefixes, func(i, j int) bool {
		if c := prefixes[i].Addr().Compare(prefixes[j].Addr()); c != 0 {
			return c < 0
		}
		return prefixes[i].Bits() < prefixes[j].Bits()
	})
}

func addrToUint(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func uintToAddr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
