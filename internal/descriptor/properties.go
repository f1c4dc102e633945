package descriptor

// Property structs mirror the CloudFormation property names of each kind.
// Fields that reference other resources hold intrinsics (Ref, GetAtt, Sub).
// Zero-valued fields are omitted when the template is rendered.

// VPC is the AWS::EC2::VPC property set.
type VPC struct {
	CidrBlock          string
	EnableDnsHostnames bool
	EnableDnsSupport   bool
	Tags               []any
}

// VPCCidrBlock associates a secondary CIDR with the VPC.
type VPCCidrBlock struct {
	VpcId     any
	CidrBlock string
}

// Subnet is the AWS::EC2::Subnet property set.
type Subnet struct {
	VpcId               any
	CidrBlock           string
	AvailabilityZone    string
	MapPublicIpOnLaunch bool
	Tags                []any
}

// RouteTable is the AWS::EC2::RouteTable property set.
type RouteTable struct {
	VpcId any
	Tags  []any
}

// Route is a single route. Exactly one target field is set.
type Route struct {
	RouteTableId         any
	DestinationCidrBlock string
	GatewayId            any
	NatGatewayId         any
	TransitGatewayId     any
}

// SubnetRouteTableAssociation binds a subnet to a route table.
type SubnetRouteTableAssociation struct {
	SubnetId     any
	RouteTableId any
}

// InternetGateway is the AWS::EC2::InternetGateway property set.
type InternetGateway struct {
	Tags []any
}

// VPCGatewayAttachment attaches an internet gateway to the VPC.
type VPCGatewayAttachment struct {
	VpcId             any
	InternetGatewayId any
}

// EIP is an elastic IP allocation for a public NAT gateway.
type EIP struct {
	Domain string
	Tags   []any
}

// NatGateway is the AWS::EC2::NatGateway property set. Private NAT gateways
// set ConnectivityType "private" and have no AllocationId.
type NatGateway struct {
	SubnetId         any
	AllocationId     any
	ConnectivityType string
	Tags             []any
}

// TransitGatewayAttachment attaches the VPC to a transit gateway.
type TransitGatewayAttachment struct {
	TransitGatewayId string
	VpcId            any
	SubnetIds        []any
	Tags             []any
}

// NetworkAcl is the AWS::EC2::NetworkAcl property set.
type NetworkAcl struct {
	VpcId any
	Tags  []any
}

// PortRange is an inclusive TCP/UDP port range.
type PortRange struct {
	From int
	To   int
}

// NetworkAclEntry is one numbered NACL rule.
type NetworkAclEntry struct {
	NetworkAclId any
	RuleNumber   int
	Protocol     int
	RuleAction   string
	Egress       bool
	CidrBlock    string
	PortRange    *PortRange
}

// SubnetNetworkAclAssociation binds a subnet to a NACL.
type SubnetNetworkAclAssociation struct {
	SubnetId     any
	NetworkAclId any
}

// ResourceShare is the AWS::RAM::ResourceShare property set. Principals is
// filled from the share's principal associations when the template is
// rendered.
type ResourceShare struct {
	Name                    string
	ResourceArns            []any
	Principals              []string
	AllowExternalPrincipals *bool
	Tags                    []any
}

// PrincipalAssociation grants a single principal access to a share.
type PrincipalAssociation struct {
	ResourceShareArn any
	Principal        string
}
