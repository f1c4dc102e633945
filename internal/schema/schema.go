// Package schema checks synthesized templates against the property schemas
// of the network resource types synthesis emits. It runs offline, before
// cfn-lint, and catches descriptors rendered without required properties.
package schema

import (
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-network-go"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties the schema does not know as warnings.
	Strict bool
}

// Issue is one schema violation.
type Issue struct {
	Resource string
	Property string
	Message  string
}

func (i Issue) String() string {
	if i.Property == "" {
		return fmt.Sprintf("%s: %s", i.Resource, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Resource, i.Property, i.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Messages renders issues as strings.
func Messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

// ValidateTemplate validates every resource of a template. Issues are
// sorted by resource, then property.
func ValidateTemplate(template *wetwire.Template, opts Options) *Result {
	result := &Result{Valid: true}

	for name, resource := range template.Resources {
		errs, warnings := validateResource(name, resource, opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	sortIssues(result.Errors)
	sortIssues(result.Warnings)
	result.Valid = len(result.Errors) == 0
	return result
}

func validateResource(name string, resource wetwire.ResourceDef, opts Options) ([]Issue, []Issue) {
	var errs, warnings []Issue

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Issue{Resource: name, Property: "Type", Message: fmt.Sprintf("invalid resource type format: %s", resource.Type)})
		return errs, warnings
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Issue{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Issue{Resource: name, Property: required, Message: fmt.Sprintf("missing required property: %s", required)})
		}
	}

	for propName, propValue := range resource.Properties {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Issue{Resource: name, Property: propName, Message: fmt.Sprintf("unknown property: %s", propName)})
			}
			continue
		}
		errs = append(errs, validateProperty(name, propName, propValue, propSchema)...)
	}

	if len(schema.OneOf) > 0 {
		set := 0
		for _, p := range schema.OneOf {
			if _, ok := resource.Properties[p]; ok {
				set++
			}
		}
		if set != 1 {
			errs = append(errs, Issue{
				Resource: name,
				Message:  fmt.Sprintf("exactly one of %s must be set, found %d", strings.Join(schema.OneOf, ", "), set),
			})
		}
	}

	return errs, warnings
}

// isValidResourceType checks the AWS::Service::Resource format.
func isValidResourceType(resourceType string) bool {
	parts := strings.Split(resourceType, "::")
	return len(parts) == 3 && parts[0] == "AWS" && parts[1] != "" && parts[2] != ""
}

func validateProperty(resource, property string, value any, schema PropertySchema) []Issue {
	var errs []Issue

	if !isValidType(value, schema.Type) {
		errs = append(errs, Issue{Resource: resource, Property: property, Message: fmt.Sprintf("expected type %s", schema.Type)})
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok {
			found := false
			for _, allowed := range schema.AllowedValues {
				if strVal == allowed {
					found = true
					break
				}
			}
			if !found {
				errs = append(errs, Issue{
					Resource: resource,
					Property: property,
					Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
				})
			}
		}
	}

	if schema.Max > 0 {
		if n, ok := asInt(value); ok && (n < schema.Min || n > schema.Max) {
			errs = append(errs, Issue{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %d out of range %d-%d", n, schema.Min, schema.Max),
			})
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions satisfy every type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok && len(m) == 1 {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		_, ok := asInt(value)
		return ok
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Resource != issues[j].Resource {
			return issues[i].Resource < issues[j].Resource
		}
		return issues[i].Property < issues[j].Property
	})
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
	// OneOf lists properties of which exactly one must be set.
	OneOf []string
}

// PropertySchema defines the schema for a property. Min and Max bound
// integer values when Max is non-zero.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	Min, Max      int
}

var (
	str  = PropertySchema{Type: "String"}
	ref  = PropertySchema{Type: "String"}
	tags = PropertySchema{Type: "List"}
)

// resourceSchemas covers the resource types synthesis emits.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::EC2::VPC": {
		Required: []string{"CidrBlock"},
		Properties: map[string]PropertySchema{
			"CidrBlock":          str,
			"EnableDnsHostnames": {Type: "Boolean"},
			"EnableDnsSupport":   {Type: "Boolean"},
			"Tags":               tags,
		},
	},
	"AWS::EC2::VPCCidrBlock": {
		Required:   []string{"VpcId", "CidrBlock"},
		Properties: map[string]PropertySchema{"VpcId": ref, "CidrBlock": str},
	},
	"AWS::EC2::Subnet": {
		Required: []string{"VpcId", "CidrBlock", "AvailabilityZone"},
		Properties: map[string]PropertySchema{
			"VpcId":               ref,
			"CidrBlock":           str,
			"AvailabilityZone":    str,
			"MapPublicIpOnLaunch": {Type: "Boolean"},
			"Tags":                tags,
		},
	},
	"AWS::EC2::RouteTable": {
		Required:   []string{"VpcId"},
		Properties: map[string]PropertySchema{"VpcId": ref, "Tags": tags},
	},
	"AWS::EC2::Route": {
		Required: []string{"RouteTableId", "DestinationCidrBlock"},
		Properties: map[string]PropertySchema{
			"RouteTableId":         ref,
			"DestinationCidrBlock": str,
			"GatewayId":            ref,
			"NatGatewayId":         ref,
			"TransitGatewayId":     ref,
		},
		OneOf: []string{"GatewayId", "NatGatewayId", "TransitGatewayId"},
	},
	"AWS::EC2::SubnetRouteTableAssociation": {
		Required:   []string{"SubnetId", "RouteTableId"},
		Properties: map[string]PropertySchema{"SubnetId": ref, "RouteTableId": ref},
	},
	"AWS::EC2::InternetGateway": {
		Properties: map[string]PropertySchema{"Tags": tags},
	},
	"AWS::EC2::VPCGatewayAttachment": {
		Required:   []string{"VpcId", "InternetGatewayId"},
		Properties: map[string]PropertySchema{"VpcId": ref, "InternetGatewayId": ref},
	},
	"AWS::EC2::EIP": {
		Properties: map[string]PropertySchema{
			"Domain": {Type: "String", AllowedValues: []string{"vpc"}},
			"Tags":   tags,
		},
	},
	"AWS::EC2::NatGateway": {
		Required: []string{"SubnetId"},
		Properties: map[string]PropertySchema{
			"SubnetId":         ref,
			"AllocationId":     ref,
			"ConnectivityType": {Type: "String", AllowedValues: []string{"public", "private"}},
			"Tags":             tags,
		},
	},
	"AWS::EC2::TransitGatewayAttachment": {
		Required: []string{"TransitGatewayId", "VpcId", "SubnetIds"},
		Properties: map[string]PropertySchema{
			"TransitGatewayId": str,
			"VpcId":            ref,
			"SubnetIds":        {Type: "List"},
			"Tags":             tags,
		},
	},
	"AWS::EC2::NetworkAcl": {
		Required:   []string{"VpcId"},
		Properties: map[string]PropertySchema{"VpcId": ref, "Tags": tags},
	},
	"AWS::EC2::NetworkAclEntry": {
		Required: []string{"NetworkAclId", "RuleNumber", "Protocol", "RuleAction", "CidrBlock"},
		Properties: map[string]PropertySchema{
			"NetworkAclId": ref,
			"RuleNumber":   {Type: "Integer", Min: 1, Max: 32766},
			"Protocol":     {Type: "Integer", Min: -1, Max: 255},
			"RuleAction":   {Type: "String", AllowedValues: []string{"allow", "deny"}},
			"Egress":       {Type: "Boolean"},
			"CidrBlock":    str,
			"PortRange":    {Type: "Map"},
		},
	},
	"AWS::EC2::SubnetNetworkAclAssociation": {
		Required:   []string{"SubnetId", "NetworkAclId"},
		Properties: map[string]PropertySchema{"SubnetId": ref, "NetworkAclId": ref},
	},
	"AWS::RAM::ResourceShare": {
		Required: []string{"Name"},
		Properties: map[string]PropertySchema{
			"Name":                    str,
			"ResourceArns":            {Type: "List"},
			"Principals":              {Type: "List"},
			"AllowExternalPrincipals": {Type: "Boolean"},
			"Tags":                    tags,
		},
	},
}
