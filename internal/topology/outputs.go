package topology

import (
	"fmt"
	"sort"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/intrinsics"
)

// AddOutputs records the values the environment assembly layer consumes:
// the VPC id, subnet ids per category and per customer, and the private
// route table ids.
func AddOutputs(b TopologyBuilder) TopologyBuilder {
	out := b.clone()
	out.Outputs = append(out.Outputs, Output{
		LogicalID:   "VpcId",
		Description: "VPC " + out.VPC,
		Value:       intrinsics.Ref{LogicalName: out.VPCID},
		ExportName:  out.VPC + "-vpc-id",
	})

	for _, g := range out.Groups {
		out.Outputs = append(out.Outputs, Output{
			LogicalID:   descriptor.PascalCase(string(g.Category)) + "SubnetIds",
			Description: fmt.Sprintf("%s subnets in availability zone order", g.Category),
			Value:       intrinsics.JoinRefs(g.SubnetIDs()),
			ExportName:  fmt.Sprintf("%s-%s-subnet-ids", out.VPC, g.Category),
		})
	}

	var private []string
	for _, rt := range out.RouteTables {
		if rt.Kind == RouteTablePrivate {
			private = append(private, rt.LogicalID)
		}
	}
	if len(private) > 0 {
		out.Outputs = append(out.Outputs, Output{
			LogicalID:   "PrivateRouteTableIds",
			Description: "private route tables in availability zone order",
			Value:       intrinsics.JoinRefs(private),
			ExportName:  out.VPC + "-private-route-table-ids",
		})
	}

	names := make([]string, 0, len(out.Customers))
	for name := range out.Customers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		subnets := out.Customers[name]
		ids := make([]string, len(subnets))
		for i, s := range subnets {
			ids[i] = s.LogicalID
		}
		out.Outputs = append(out.Outputs, Output{
			LogicalID:   descriptor.PascalCase(name) + "CustomerSubnetIds",
			Description: "subnets of customer " + name,
			Value:       intrinsics.JoinRefs(ids),
			ExportName:  fmt.Sprintf("%s-customer-%s-subnet-ids", out.VPC, name),
		})
	}
	return out
}
