// Package wetwire_network defines the CloudFormation template shapes and the
// JSON results emitted by the wetwire-network CLI.
//
// Network topologies are synthesized from an environment file:
//
//	vpcs:
//	  - name: shared-prod
//	    account: shared-prod
//	    role: gateway
//	    cidrSlot: primary
//
// Each VPC becomes one template whose resources are the VPC, its subnets,
// route tables, gateways, network ACLs and resource shares.
package wetwire_network

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names an output for cross-stack imports.
type Export struct {
	Name string `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `wetwire-network build`.
type BuildResult struct {
	Success bool       `json:"success"`
	VPCs    []BuiltVPC `json:"vpcs,omitempty"`
	Errors  []string   `json:"errors,omitempty"`
}

// BuiltVPC describes one synthesized VPC template.
type BuiltVPC struct {
	Name      string `json:"name"`
	Account   string `json:"account"`
	Region    string `json:"region"`
	Role      string `json:"role"`
	File      string `json:"file,omitempty"`
	Resources int    `json:"resources"`
}

// ValidateResult is the JSON output from `wetwire-network validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `wetwire-network list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	VPC  string `json:"vpc"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// DiffEntry is one added, removed or modified resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource differences by kind of change.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts resource differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// DiffResult is the JSON output from `wetwire-network diff`.
type DiffResult struct {
	Diff    TemplateDiff `json:"diff"`
	Summary DiffSummary  `json:"summary"`
}
