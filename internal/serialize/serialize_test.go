package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

func TestResource_Subnet(t *testing.T) {
	props, err := Resource(descriptor.Subnet{
		VpcId:            intrinsics.Ref{LogicalName: "ProdVPC"},
		CidrBlock:        "10.0.0.0/20",
		AvailabilityZone: "us-east-1a",
		Tags:             intrinsics.Tags("prod-app-az0", map[string]string{"network:category": "app"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.0/20", props["CidrBlock"])
	assert.Equal(t, map[string]any{"Ref": "ProdVPC"}, props["VpcId"])
	assert.NotContains(t, props, "MapPublicIpOnLaunch", "false bools are omitted")

	tags := props["Tags"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "Name", tags[0].(map[string]any)["Key"])
	assert.Equal(t, "network:category", tags[1].(map[string]any)["Key"])
}

func TestResource_NestedPortRange(t *testing.T) {
	props, err := Resource(descriptor.NetworkAclEntry{
		NetworkAclId: intrinsics.Ref{LogicalName: "ProdAppNetworkAcl"},
		RuleNumber:   100,
		Protocol:     6,
		RuleAction:   "allow",
		CidrBlock:    "0.0.0.0/0",
		PortRange:    &descriptor.PortRange{From: 443, To: 443},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), props["RuleNumber"])
	assert.Equal(t, int64(6), props["Protocol"])
	assert.NotContains(t, props, "Egress")

	ports := props["PortRange"].(map[string]any)
	assert.Equal(t, int64(443), ports["From"])
	assert.Equal(t, int64(443), ports["To"])
}

func TestResource_PointerBoolSurvives(t *testing.T) {
	external := false
	props, err := Resource(&descriptor.ResourceShare{
		Name:                    "prod-app",
		AllowExternalPrincipals: &external,
	})
	require.NoError(t, err)

	assert.Equal(t, false, props["AllowExternalPrincipals"])
	assert.NotContains(t, props, "Principals")
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a struct")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestValue_Intrinsics(t *testing.T) {
	v, err := Value(intrinsics.JoinRefs([]string{"A", "B"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Fn::Join": []any{",", []any{
			map[string]any{"Ref": "A"},
			map[string]any{"Ref": "B"},
		}},
	}, v)

	v, err = Value("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
}

func TestReferences(t *testing.T) {
	props := map[string]any{
		"VpcId":        map[string]any{"Ref": "ProdVPC"},
		"AllocationId": map[string]any{"Fn::GetAtt": []any{"ProdEgressEIPAz0", "AllocationId"}},
		"ResourceArns": []any{
			map[string]any{"Fn::Sub": "arn:${AWS::Partition}:ec2:${AWS::Region}:${AWS::AccountId}:subnet/${ProdAppSubnetAz0}"},
			map[string]any{"Fn::Sub": []any{"${Share.Arn}/${Literal}", map[string]any{"Literal": map[string]any{"Ref": "Other"}}}},
		},
		"Tags": []any{map[string]any{"Key": "Name", "Value": "Ref"}},
		"Ref":  "not an intrinsic on its own",
		"Keep": map[string]any{"Ref": "AWS::Region"},
	}

	assert.Equal(t, []string{"Literal", "Other", "ProdAppSubnetAz0", "ProdEgressEIPAz0", "ProdVPC", "Share"}, References(props))
}

func TestReferences_Empty(t *testing.T) {
	assert.Empty(t, References(nil))
	assert.Empty(t, References(map[string]any{"CidrBlock": "10.0.0.0/16"}))
}
