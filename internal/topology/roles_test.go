package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRolesValidate(t *testing.T) {
	for _, name := range RoleNames() {
		t.Run(name, func(t *testing.T) {
			role, err := RoleByName(name)
			require.NoError(t, err)
			assert.Equal(t, name, role.Name)
			assert.NoError(t, role.Validate())
		})
	}
}

func TestRoleByName_Unknown(t *testing.T) {
	_, err := RoleByName("mesh")
	assert.ErrorContains(t, err, "unknown vpc role")
}

func TestRoleNames(t *testing.T) {
	assert.Equal(t, []string{"gateway", "inspection", "isolated", "spoke", "tools"}, RoleNames())
}

func TestRoleSpec_Validate(t *testing.T) {
	tests := []struct {
		name string
		role RoleSpec
		want string
	}{
		{
			name: "duplicate group",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup, appGroup}, Egress: EgressNone},
			want: "twice",
		},
		{
			name: "bad visibility",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{{Category: CategoryApp}}, Egress: EgressNone},
			want: "visibility",
		},
		{
			name: "tgw without transit",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup}, Egress: EgressTransitGateway},
			want: "transit group",
		},
		{
			name: "unknown egress",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup}, Egress: "carrier-pigeon"},
			want: "unknown egress",
		},
		{
			name: "customer edge without group",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup}, Egress: EgressNAT, CustomerEdge: true},
			want: "customer-edge group",
		},
		{
			name: "customer subnets without edge",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup, customerEdgeGroup}, Egress: EgressNAT, CustomerSubnets: true},
			want: "customer edge routing",
		},
		{
			name: "shares undeclared",
			role: RoleSpec{Name: "r", Groups: []GroupSpec{appGroup}, Egress: EgressNAT, Shares: []Category{CategoryPublic}},
			want: "does not declare",
		},
		{
			name: "no name",
			role: RoleSpec{Groups: []GroupSpec{appGroup}},
			want: "no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.role.Validate(), tt.want)
		})
	}
}

func TestGatewayRole_Layout(t *testing.T) {
	role := GatewayRole()

	var cats []Category
	for _, g := range role.Groups {
		cats = append(cats, g.Category)
	}
	assert.Equal(t, []Category{CategoryPublic, CategoryTransit, CategoryApp, CategoryData, CategoryCustomerEdge}, cats)

	g, ok := role.Group(CategoryPublic)
	require.True(t, ok)
	assert.Equal(t, Public, g.Visibility)

	_, ok = role.Group(CategoryInspection)
	assert.False(t, ok)

	role.Groups[0].Purpose = "changed"
	assert.Equal(t, "internet ingress", GatewayRole().Groups[0].Purpose, "each call returns a fresh recipe")
}
