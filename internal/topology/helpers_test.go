package topology

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-network-go/internal/registry"
)

const testRegistryYAML = `
organizationId: o-abc123def4
managementAccountId: "000000000001"
primaryRegion: us-east-1
recoveryRegion: us-west-2
organizationalUnits:
  - {name: internal-stage, id: ou-root-00000001}
  - {name: uat, id: ou-root-00000002}
  - {name: production, id: ou-root-00000003}
  - {name: tools, id: ou-root-00000004}
  - {name: sandbox, id: ou-root-00000005}
  - {name: dev, id: ou-root-00000006}
  - {name: performance, id: ou-root-00000007}
  - {name: qe, id: ou-root-00000008}
accounts:
  - {name: shared-prod, id: "111111111111", role: production-hub, ou: production, cidrs: {primary: 10.10.0.0/16, recovery: 10.20.0.0/16}}
  - {name: shared-nonprod, id: "222222222222", role: nonproduction-hub, ou: dev, cidrs: {primary: 10.30.0.0/16}}
  - {name: shared-sandbox, id: "333333333333", role: sandbox-hub, ou: sandbox, cidrs: {primary: 10.40.0.0/16}}
  - {name: app-dev, id: "444444444444", ou: dev, cidrs: {primary: 10.50.0.0/16}}
crossTenantException:
  customer: acme
  account: app-dev
`

const testCustomersYAML = `
customers:
  - name: globex
    accounts: ["900000000001"]
    reservations:
      us-east-1/production: [10.10.241.0/26, 10.10.241.64/26]
  - name: acme
    accounts: ["900000000002", "900000000003"]
    reservations:
      us-east-1/production: [10.10.240.0/26, 10.10.240.64/26, 10.10.240.128/26]
      us-east-1/nonproduction: [10.30.240.0/26, 10.30.240.64/26, 10.30.240.128/26]
  - name: initech
    accounts: ["900000000004"]
    reservations:
      us-west-2/production: [10.20.240.0/26]
  - name: hooli
    accounts: ["900000000005"]
    reservations:
      us-east-1/sandbox: [10.40.240.0/26]
      us-east-1/workload: [10.50.240.0/26]
`

var testAZs = []string{"us-east-1a", "us-east-1b", "us-east-1c"}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.ParseRegistry([]byte(testRegistryYAML))
	require.NoError(t, err)
	return reg
}

func testCustomers(t *testing.T) *registry.Customers {
	t.Helper()
	c, err := registry.ParseCustomers([]byte(testCustomersYAML))
	require.NoError(t, err)
	return c
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{
		Registry:  testRegistry(t),
		Customers: testCustomers(t),
		Policy:    DefaultPolicy(),
	}
}

// threeTierRole carves transit, app and data subnets with NAT egress.
func threeTierRole() RoleSpec {
	return RoleSpec{
		Name:            "three-tier",
		Groups:          []GroupSpec{transitGroup, appGroup, dataGroup},
		SubdivisionBits: 4,
		Egress:          EgressNAT,
	}
}

func gatewayInput(account, cidr string) Input {
	return Input{
		Name:    "gateway",
		Account: account,
		Region:  "us-east-1",
		Role:    GatewayRole(),
		Cidr:    netip.MustParsePrefix(cidr),
		AZs:     testAZs,
	}
}

// inputsForAllRoles returns one valid input per built-in role.
func inputsForAllRoles() []Input {
	return []Input{
		gatewayInput("shared-prod", "10.10.0.0/16"),
		{Name: "spoke", Account: "app-dev", Region: "us-east-1", Role: SpokeRole(), Cidr: netip.MustParsePrefix("10.50.0.0/16"), AZs: testAZs, TransitGatewayID: "tgw-0123456789abcdef0"},
		{Name: "isolated", Account: "app-dev", Region: "us-east-1", Role: IsolatedRole(), Cidr: netip.MustParsePrefix("10.51.0.0/16"), AZs: testAZs},
		{Name: "tools", Account: "shared-nonprod", Region: "us-east-1", Role: ToolsRole(), Cidr: netip.MustParsePrefix("10.60.0.0/16"), AZs: testAZs},
		{Name: "inspection", Account: "shared-prod", Region: "us-east-1", Role: InspectionRole(), Cidr: netip.MustParsePrefix("10.70.0.0/16"), AZs: testAZs},
	}
}

func principalNames(s ResourceShare) []string {
	names := make([]string, len(s.Principals))
	for i, p := range s.Principals {
		names[i] = p.Name
	}
	return names
}

func findShare(r *Result, name string) (ResourceShare, bool) {
	for _, s := range r.Shares {
		if s.Name == name {
			return s, true
		}
	}
	return ResourceShare{}, false
}
