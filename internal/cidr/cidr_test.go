package cidr

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		bits     int
		start    int
		count    int
		expected []string
	}{
		{
			name:     "first three /20 of a /16",
			base:     "10.0.0.0/16",
			bits:     4,
			start:    0,
			count:    3,
			expected: []string{"10.0.0.0/20", "10.0.16.0/20", "10.0.32.0/20"},
		},
		{
			name:     "offset reservation",
			base:     "10.0.0.0/16",
			bits:     4,
			start:    3,
			count:    3,
			expected: []string{"10.0.48.0/20", "10.0.64.0/20", "10.0.80.0/20"},
		},
		{
			name:     "last block",
			base:     "10.0.0.0/16",
			bits:     2,
			start:    3,
			count:    1,
			expected: []string{"10.0.192.0/18"},
		},
		{
			name:     "zero bits returns base",
			base:     "192.168.4.0/24",
			bits:     0,
			start:    0,
			count:    1,
			expected: []string{"192.168.4.0/24"},
		},
		{
			name:     "unmasked base is normalised",
			base:     "10.1.2.3/16",
			bits:     8,
			start:    1,
			count:    2,
			expected: []string{"10.1.1.0/24", "10.1.2.0/24"},
		},
		{
			name:     "empty count",
			base:     "10.0.0.0/16",
			bits:     4,
			start:    0,
			count:    0,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := Partition(netip.MustParsePrefix(tt.base), tt.bits, tt.start, tt.count)
			require.NoError(t, err)

			got := make([]string, len(blocks))
			for i, b := range blocks {
				got[i] = b.String()
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPartition_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		base  netip.Prefix
		bits  int
		start int
		count int
	}{
		{"a /24 cannot hold twenty /24 blocks", netip.MustParsePrefix("10.0.0.0/24"), 0, 0, 20},
		{"a /28 asked for twelve blocks", netip.MustParsePrefix("10.0.0.0/28"), 2, 0, 12},
		{"beyond /32", netip.MustParsePrefix("10.0.0.0/30"), 4, 0, 1},
		{"negative index", netip.MustParsePrefix("10.0.0.0/16"), 4, -1, 2},
		{"invalid prefix", netip.Prefix{}, 4, 0, 2},
		{"ipv6", netip.MustParsePrefix("2001:db8::/56"), 8, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Partition(tt.base, tt.bits, tt.start, tt.count)
			require.Error(t, err)

			var topoErr *InvalidTopologyError
			assert.True(t, errors.As(err, &topoErr))
		})
	}
}

func TestPartitionToSize(t *testing.T) {
	blocks, err := PartitionToSize(netip.MustParsePrefix("10.0.0.0/16"), 24, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.2.0/24"),
		netip.MustParsePrefix("10.0.3.0/24"),
	}, blocks)

	_, err = PartitionToSize(netip.MustParsePrefix("10.0.0.0/24"), 24, 0, 20)
	var topoErr *InvalidTopologyError
	require.ErrorAs(t, err, &topoErr)

	_, err = PartitionToSize(netip.MustParsePrefix("10.0.0.0/24"), 16, 0, 1)
	require.ErrorAs(t, err, &topoErr)
}

func TestPartition_BlocksAreDisjointSubsets(t *testing.T) {
	bases := []string{"10.0.0.0/16", "172.16.0.0/20", "192.168.0.0/22"}
	for _, b := range bases {
		base := netip.MustParsePrefix(b)
		for bits := 1; bits <= 6; bits++ {
			capacity := 1 << bits
			for start := 0; start < capacity; start++ {
				count := capacity - start
				blocks, err := Partition(base, bits, start, count)
				require.NoError(t, err)
				require.Len(t, blocks, count)

				for i, blk := range blocks {
					assert.True(t, Contains(base, blk), "%s not inside %s", blk, base)
					assert.NotEqual(t, base, blk)
					for j := i + 1; j < len(blocks); j++ {
						assert.False(t, blk.Overlaps(blocks[j]), "%s overlaps %s", blk, blocks[j])
					}
				}
			}
		}
	}
}

func TestCheckReservations(t *testing.T) {
	base := netip.MustParsePrefix("10.0.0.0/16")

	ok := []NetworkCidr{
		{Base: base, SubdivisionBits: 4, Start: 0, Count: 3, Owner: "transit"},
		{Base: base, SubdivisionBits: 4, Start: 3, Count: 3, Owner: "app"},
		{Base: base, SubdivisionBits: 4, Start: 6, Count: 3, Owner: "data"},
	}
	require.NoError(t, CheckReservations(ok))

	overlapping := append(ok, NetworkCidr{Base: base, SubdivisionBits: 4, Start: 5, Count: 2, Owner: "public"})
	err := CheckReservations(overlapping)
	var topoErr *InvalidTopologyError
	require.ErrorAs(t, err, &topoErr)
	assert.Contains(t, err.Error(), "public")

	mixedBits := []NetworkCidr{
		{Base: base, SubdivisionBits: 4, Start: 0, Count: 1, Owner: "wide"},
		{Base: base, SubdivisionBits: 8, Start: 2, Count: 1, Owner: "narrow"},
	}
	require.Error(t, CheckReservations(mixedBits))
}

func TestContains(t *testing.T) {
	outer := netip.MustParsePrefix("10.0.0.0/16")
	assert.True(t, Contains(outer, netip.MustParsePrefix("10.0.4.0/24")))
	assert.True(t, Contains(outer, outer))
	assert.False(t, Contains(outer, netip.MustParsePrefix("10.1.0.0/24")))
	assert.False(t, Contains(outer, netip.MustParsePrefix("10.0.0.0/8")))
}

func TestSort(t *testing.T) {
	prefixes := []netip.Prefix{
		netip.MustParsePrefix("10.0.2.0/24"),
		netip.MustParsePrefix("10.0.0.0/16"),
		netip.MustParsePrefix("10.0.0.0/24"),
	}
	Sort(prefixes)
	assert.Equal(t, "10.0.0.0/16", prefixes[0].String())
	assert.Equal(t, "10.0.0.0/24", prefixes[1].String())
	assert.Equal(t, "10.0.2.0/24", prefixes[2].String())
}
