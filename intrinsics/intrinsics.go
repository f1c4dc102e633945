// Package intrinsics provides the CloudFormation intrinsic functions used in
// synthesized network descriptors.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{"MySubnet"} → {"Ref": "MySubnet"}
//	GetAtt{"MyEIP", "AllocationId"} → {"Fn::GetAtt": ["MyEIP", "AllocationId"]}
//	Join{",", []any{Ref{"A"}, Ref{"B"}}} → {"Fn::Join": [",", [...]]}
package intrinsics

import (
	"sort"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Tags builds a tag list with Name first and the remaining keys sorted, so
// repeated synthesis produces identical property values.
func Tags(name string, extra map[string]string) []any {
	tags := make([]any, 0, len(extra)+1)
	if name != "" {
		tags = append(tags, Tag{Key: "Name", Value: name})
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k == "Name" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		tags = append(tags, Tag{Key: k, Value: extra[k]})
	}
	return tags
}

// SubnetArn returns the ARN of a subnet declared in the same template.
func SubnetArn(logicalID string) Sub {
	return Sub{String: "arn:${AWS::Partition}:ec2:${AWS::Region}:${AWS::AccountId}:subnet/${" + logicalID + "}"}
}

// JoinRefs joins the Refs of the given logical ids with a comma.
func JoinRefs(logicalIDs []string) Join {
	values := make([]any, len(logicalIDs))
	for i, id := range logicalIDs {
		values[i] = Ref{LogicalName: id}
	}
	return Join{Delimiter: ",", Values: values}
}
