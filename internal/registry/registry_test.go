package registry

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `
organizationId: o-abc123def4
managementAccountId: "000000000001"
primaryRegion: us-east-1
recoveryRegion: us-west-2
organizationalUnits:
  - name: production
    id: ou-prod-11111111
  - name: tools
    id: ou-tool-22222222
accounts:
  - name: shared-prod
    id: "111111111111"
    role: production-hub
    ou: production
    cidrs:
      primary: 10.10.0.0/16
      recovery: 10.20.0.0/16
  - name: app-dev
    id: "222222222222"
    ou: tools
    cidrs:
      primary: 10.30.0.0/16
crossTenantException:
  customer: acme
  account: app-dev
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(registryYAML))
	require.NoError(t, err)

	acct, ok := reg.Account("shared-prod")
	require.True(t, ok)
	assert.Equal(t, "111111111111", acct.ID)
	assert.Equal(t, RoleProductionHub, acct.Role)

	dev, ok := reg.AccountByID("222222222222")
	require.True(t, ok)
	assert.Equal(t, RoleWorkload, dev.Role, "missing role defaults to workload")

	ou, ok := reg.OU("tools")
	require.True(t, ok)
	assert.Equal(t, "arn:aws:organizations::000000000001:ou/o-abc123def4/ou-tool-22222222", reg.OUArn(ou))

	assert.Equal(t, []string{"app-dev", "shared-prod"}, reg.AccountNames())
	assert.Equal(t, "acme", reg.CrossTenant.Customer)
	assert.Equal(t, "us-east-1", reg.PrimaryRegion)
}

func TestParseRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing region",
			yaml: `accounts: []`,
			want: "primaryRegion",
		},
		{
			name: "bad account id",
			yaml: "primaryRegion: us-east-1\naccounts:\n  - name: x\n    id: \"123\"\n",
			want: "invalid id",
		},
		{
			name: "unknown role",
			yaml: "primaryRegion: us-east-1\naccounts:\n  - name: x\n    id: \"123456789012\"\n    role: boss\n",
			want: "unknown role",
		},
		{
			name: "unknown ou",
			yaml: "primaryRegion: us-east-1\naccounts:\n  - name: x\n    id: \"123456789012\"\n    ou: nowhere\n",
			want: "unknown organizational unit",
		},
		{
			name: "duplicate account",
			yaml: "primaryRegion: us-east-1\naccounts:\n  - name: x\n    id: \"123456789012\"\n  - name: x\n    id: \"123456789013\"\n",
			want: "duplicate account name",
		},
		{
			name: "bad ou id",
			yaml: "primaryRegion: us-east-1\norganizationalUnits:\n  - name: dev\n    id: dev\n",
			want: "invalid id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAccount_Cidr(t *testing.T) {
	a := Account{Name: "x", Cidrs: CidrAllocations{Primary: "10.0.0.0/16", Recovery: "10.1.0.0/16"}}

	p, err := a.Cidr(SlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/16"), p)

	p, err = a.Cidr(SlotRecovery)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), p)

	_, err = a.Cidr(SlotLegacy)
	assert.ErrorContains(t, err, "no legacy cidr")

	_, err = a.Cidr("tertiary")
	assert.ErrorContains(t, err, "unknown cidr slot")
}

func TestLoadRegistry_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Accounts, 2)

	_, err = LoadRegistry(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

const customersYAML = `
customers:
  - name: globex
    accounts: ["333333333333"]
    reservations:
      us-east-1/production: [10.10.240.0/26, 10.10.240.64/26, 10.10.240.128/26]
  - name: acme
    accounts: ["444444444444", "555555555555"]
    reservations:
      us-east-1/production: [10.10.241.0/26, 10.10.241.64/26, 10.10.241.128/26]
      us-west-2/production: [10.20.241.0/26, 10.20.241.64/26]
`

func TestParseCustomers(t *testing.T) {
	c, err := ParseCustomers([]byte(customersYAML))
	require.NoError(t, err)

	sorted := c.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "acme", sorted[0].Name)
	assert.Equal(t, "globex", sorted[1].Name)

	acme, ok := c.Get("acme")
	require.True(t, ok)

	cidrs, found, err := acme.Reservation(CidrKey{Region: "us-west-2", AccountType: "production"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, cidrs, 2)

	_, found, err = acme.Reservation(CidrKey{Region: "eu-west-1", AccountType: "production"})
	require.NoError(t, err)
	assert.False(t, found)

	_, ok = c.Get("initech")
	assert.False(t, ok)
}

func TestParseCustomers_Invalid(t *testing.T) {
	_, err := ParseCustomers([]byte("customers:\n  - name: a\n    reservations:\n      nokey: [10.0.0.0/24]\n"))
	assert.ErrorContains(t, err, "invalid customer cidr key")

	_, err = ParseCustomers([]byte("customers:\n  - name: a\n    reservations:\n      us-east-1/prod: [not-a-cidr]\n"))
	assert.Error(t, err)

	_, err = ParseCustomers([]byte("customers:\n  - name: a\n  - name: a\n"))
	assert.ErrorContains(t, err, "duplicate customer")

	_, err = ParseCustomers([]byte("customers:\n  - name: a\n    accounts: [\"12\"]\n"))
	assert.ErrorContains(t, err, "invalid account id")
}

func TestParseCidrKey(t *testing.T) {
	k, err := ParseCidrKey("us-east-1/nonproduction")
	require.NoError(t, err)
	assert.Equal(t, CidrKey{Region: "us-east-1", AccountType: "nonproduction"}, k)
	assert.Equal(t, "us-east-1/nonproduction", k.String())

	_, err = ParseCidrKey("us-east-1")
	assert.Error(t, err)
}

func TestNilCustomers(t *testing.T) {
	var c *Customers
	assert.Nil(t, c.Sorted())
	_, ok := c.Get("acme")
	assert.False(t, ok)
}

func TestParseCustomers_LogicalIDCollisions(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "separator variants",
			yaml:    "customers:\n  - name: acme-co\n  - name: acme_co\n",
			wantErr: `customers "acme-co" and "acme_co" both map to logical id AcmeCo`,
		},
		{
			name:    "case variants",
			yaml:    "customers:\n  - name: acme\n  - name: Acme\n",
			wantErr: "both map to logical id Acme",
		},
		{
			name:    "no usable characters",
			yaml:    "customers:\n  - name: \"--\"\n",
			wantErr: "name has no letters or digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCustomers([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCustomers_CheckCrossTenant(t *testing.T) {
	reg, err := ParseRegistry([]byte(registryYAML))
	require.NoError(t, err)
	customers, err := ParseCustomers([]byte(customersYAML))
	require.NoError(t, err)

	// acme already lists 444444444444; app-dev is 222222222222.
	assert.NoError(t, customers.CheckCrossTenant(reg))

	overlapping, err := ParseCustomers([]byte(`
customers:
  - name: acme
    accounts: ["222222222222", "555555555555"]
`))
	require.NoError(t, err)
	err = overlapping.CheckCrossTenant(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app-dev (222222222222) is already an account of customer acme")

	reg.CrossTenant = CrossTenantException{}
	assert.NoError(t, overlapping.CheckCrossTenant(reg), "no exception configured")

	reg.CrossTenant = CrossTenantException{Customer: "acme", Account: "departed"}
	assert.NoError(t, overlapping.CheckCrossTenant(reg), "unknown accounts are reported at synthesis")
}
