package schema

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/registry"
	"github.com/lex00/wetwire-network-go/internal/template"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

func synthesizedTemplate(t *testing.T, role topology.RoleSpec, account, cidr, tgw string) *wetwire.Template {
	t.Helper()
	reg, err := registry.LoadRegistry("../../examples/network/accounts.yaml")
	require.NoError(t, err)
	customers, err := registry.LoadCustomers("../../examples/network/customers.yaml")
	require.NoError(t, err)

	engine := &topology.Engine{Registry: reg, Customers: customers, Policy: topology.DefaultPolicy()}
	result, err := engine.Synthesize(topology.Input{
		Name:             "prod-" + role.Name,
		Account:          account,
		Region:           "us-east-1",
		Role:             role,
		Cidr:             netip.MustParsePrefix(cidr),
		AZs:              []string{"us-east-1a", "us-east-1b", "us-east-1c"},
		TransitGatewayID: tgw,
	})
	require.NoError(t, err)

	tmpl, err := template.FromResult(result)
	require.NoError(t, err)
	return tmpl
}

func TestValidateTemplate_SynthesizedRoles(t *testing.T) {
	templates := map[string]*wetwire.Template{
		"gateway": synthesizedTemplate(t, topology.GatewayRole(), "shared-prod", "10.10.0.0/16", ""),
		"spoke":   synthesizedTemplate(t, topology.SpokeRole(), "app-dev", "10.50.0.0/16", "tgw-0123456789abcdef0"),
	}

	for name, tmpl := range templates {
		t.Run(name, func(t *testing.T) {
			result := ValidateTemplate(tmpl, Options{Strict: true})
			assert.True(t, result.Valid, "errors: %v", Messages(result.Errors))
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidateTemplate_Violations(t *testing.T) {
	tmpl := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"NoCidr": {Type: "AWS::EC2::VPC", Properties: map[string]any{}},
			"BadEntry": {Type: "AWS::EC2::NetworkAclEntry", Properties: map[string]any{
				"NetworkAclId": map[string]any{"Ref": "Acl"},
				"RuleNumber":   int64(40000),
				"Protocol":     "tcp",
				"RuleAction":   "permit",
				"CidrBlock":    "10.0.0.0/16",
			}},
			"TwoTargets": {Type: "AWS::EC2::Route", Properties: map[string]any{
				"RouteTableId":         map[string]any{"Ref": "Rt"},
				"DestinationCidrBlock": "0.0.0.0/0",
				"GatewayId":            map[string]any{"Ref": "Igw"},
				"NatGatewayId":         map[string]any{"Ref": "Nat"},
			}},
			"Broken":  {Type: "EC2.Subnet"},
			"Unknown": {Type: "AWS::EC2::FlowLog"},
		},
	}

	result := ValidateTemplate(tmpl, Options{})
	assert.False(t, result.Valid)

	messages := Messages(result.Errors)
	assert.Equal(t, []string{
		"BadEntry.Protocol: expected type Integer",
		"BadEntry.RuleAction: value \"permit\" not in allowed values: [allow deny]",
		"BadEntry.RuleNumber: value 40000 out of range 1-32766",
		"Broken.Type: invalid resource type format: EC2.Subnet",
		"NoCidr.CidrBlock: missing required property: CidrBlock",
		"TwoTargets: exactly one of GatewayId, NatGatewayId, TransitGatewayId must be set, found 2",
	}, messages)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Unknown", result.Warnings[0].Resource)
}

func TestValidateTemplate_Strict(t *testing.T) {
	tmpl := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"Igw": {Type: "AWS::EC2::InternetGateway", Properties: map[string]any{"Color": "blue"}},
		},
	}

	assert.Empty(t, ValidateTemplate(tmpl, Options{}).Warnings)

	result := ValidateTemplate(tmpl, Options{Strict: true})
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Igw.Color: unknown property: Color", result.Warnings[0].String())
}

func TestIsValidType(t *testing.T) {
	tests := []struct {
		value    any
		typ      string
		expected bool
	}{
		{"x", "String", true},
		{map[string]any{"Ref": "ProdVPC"}, "String", true},
		{map[string]any{"Fn::GetAtt": []any{"Share", "Arn"}}, "Integer", true},
		{int64(100), "Integer", true},
		{float64(100), "Integer", true},
		{1.5, "Integer", false},
		{true, "Boolean", true},
		{"true", "Boolean", false},
		{[]string{"a"}, "List", true},
		{[]any{"a"}, "List", true},
		{map[string]any{"From": 1, "To": 2}, "Map", true},
		{"anything", "Json", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isValidType(tt.value, tt.typ), "%v as %s", tt.value, tt.typ)
	}
}
