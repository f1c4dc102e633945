package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Ref{LogicalName: "ProdTransitSubnetAz0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "ProdTransitSubnetAz0"}`, string(data))
}

func TestTags_NameFirstThenSorted(t *testing.T) {
	tags := Tags("prod-app-az0", map[string]string{
		"purpose":  "application",
		"category": "app",
		"Name":     "ignored",
	})

	require.Len(t, tags, 3)
	assert.Equal(t, Tag{Key: "Name", Value: "prod-app-az0"}, tags[0])
	assert.Equal(t, Tag{Key: "category", Value: "app"}, tags[1])
	assert.Equal(t, Tag{Key: "purpose", Value: "application"}, tags[2])
}

func TestTags_NoName(t *testing.T) {
	tags := Tags("", map[string]string{"b": "2", "a": "1"})
	require.Len(t, tags, 2)
	assert.Equal(t, Tag{Key: "a", Value: "1"}, tags[0])
}

func TestSubnetArn(t *testing.T) {
	data, err := json.Marshal(SubnetArn("ProdPublicSubnetAz1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Fn::Sub"`)
	assert.Contains(t, string(data), `subnet/${ProdPublicSubnetAz1}`)
}

func TestJoinRefs(t *testing.T) {
	data, err := json.Marshal(JoinRefs([]string{"A", "B"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join": [",", [{"Ref": "A"}, {"Ref": "B"}]]}`, string(data))
}
