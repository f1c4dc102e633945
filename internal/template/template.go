// Package template renders a synthesized descriptor graph as a CloudFormation
// template.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-network-go"
	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/internal/serialize"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Builder constructs CloudFormation templates from a descriptor graph.
type Builder struct {
	graph       *descriptor.Graph
	outputs     []topology.Output
	description string
}

// NewBuilder creates a template builder for a descriptor graph.
func NewBuilder(graph *descriptor.Graph) *Builder {
	return &Builder{graph: graph}
}

// FromResult renders a synthesis result, including its outputs.
func FromResult(r *topology.Result) (*wetwire.Template, error) {
	b := NewBuilder(r.Graph)
	b.SetDescription(fmt.Sprintf("%s %s VPC in %s/%s", r.VPC, r.Role, r.Account, r.Region))
	for _, o := range r.Outputs {
		b.AddOutput(o)
	}
	return b.Build()
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// AddOutput appends a template output.
func (b *Builder) AddOutput(o topology.Output) {
	b.outputs = append(b.outputs, o)
}

// Build constructs the CloudFormation template.
//
// Principal associations are folded into the Principals list of their share.
// DependsOn is emitted only for edges not already implied by a Ref, GetAtt or
// Sub in the resource's properties.
func (b *Builder) Build() (*wetwire.Template, error) {
	if b.graph == nil {
		return nil, errors.New("no descriptor graph")
	}

	principals, err := b.foldPrincipals()
	if err != nil {
		return nil, err
	}

	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	template := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]wetwire.ResourceDef, len(order)),
	}

	for _, id := range order {
		d, _ := b.graph.Get(id)

		props, err := serialize.Resource(d.Properties)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", id, err)
		}
		if d.Kind == descriptor.KindResourceShare && len(principals[id]) > 0 {
			if props == nil {
				props = make(map[string]any)
			}
			list := make([]any, len(principals[id]))
			for i, p := range principals[id] {
				list[i] = p
			}
			props["Principals"] = list
		}

		template.Resources[id] = wetwire.ResourceDef{
			Type:       string(d.Kind),
			Properties: props,
			DependsOn:  b.explicitDeps(d, props),
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for _, o := range b.outputs {
			if _, exists := template.Outputs[o.LogicalID]; exists {
				return nil, fmt.Errorf("duplicate output %q", o.LogicalID)
			}
			output, err := serializeOutput(o)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", o.LogicalID, err)
			}
			template.Outputs[o.LogicalID] = output
		}
	}

	return template, nil
}

// foldPrincipals collects the principal of every association, keyed by the
// share it depends on, in graph order.
func (b *Builder) foldPrincipals() (map[string][]string, error) {
	out := make(map[string][]string)
	for _, d := range b.graph.OfKind(descriptor.KindPrincipalAssociation) {
		assoc, ok := d.Properties.(descriptor.PrincipalAssociation)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected properties %T", d.LogicalID, d.Properties)
		}

		share := ""
		for _, dep := range d.DependsOn {
			if parent, ok := b.graph.Get(dep); ok && parent.Kind == descriptor.KindResourceShare {
				share = dep
				break
			}
		}
		if share == "" {
			return nil, fmt.Errorf("%s is not associated with a resource share", d.LogicalID)
		}
		out[share] = append(out[share], assoc.Principal)
	}
	return out, nil
}

// rendered reports whether a descriptor becomes a template resource.
func rendered(d descriptor.Descriptor) bool {
	return d.Kind != descriptor.KindPrincipalAssociation
}

// explicitDeps returns the dependency edges of d that no intrinsic in its
// properties already expresses.
func (b *Builder) explicitDeps(d descriptor.Descriptor, props map[string]any) []string {
	implied := make(map[string]bool)
	for _, ref := range serialize.References(props) {
		implied[ref] = true
	}

	var deps []string
	for _, dep := range d.DependsOn {
		target, ok := b.graph.Get(dep)
		if !ok || !rendered(target) || implied[dep] {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// serializeOutput converts a topology output to the template format.
func serializeOutput(o topology.Output) (wetwire.Output, error) {
	value, err := serialize.Value(o.Value)
	if err != nil {
		return wetwire.Output{}, err
	}

	output := wetwire.Output{
		Description: o.Description,
		Value:       value,
	}
	if o.ExportName != "" {
		output.Export = &wetwire.Export{Name: o.ExportName}
	}
	return output, nil
}

// topologicalSort returns rendered resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	nodes := b.nodes()
	for _, d := range nodes {
		graph[d.LogicalID] = nil
		inDegree[d.LogicalID] = 0
	}

	for _, d := range nodes {
		for _, dep := range d.DependsOn {
			if _, exists := inDegree[dep]; exists {
				graph[dep] = append(graph[dep], d.LogicalID)
				inDegree[d.LogicalID]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(nodes) {
		return nil, b.detectCycle(nodes)
	}

	return result, nil
}

func (b *Builder) nodes() []descriptor.Descriptor {
	var out []descriptor.Descriptor
	for _, d := range b.graph.Descriptors() {
		if rendered(d) {
			out = append(out, d)
		}
	}
	return out
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle(nodes []descriptor.Descriptor) error {
	deps := make(map[string][]string, len(nodes))
	for _, d := range nodes {
		deps[d.LogicalID] = d.DependsOn
	}

	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if _, exists := deps[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	for _, d := range nodes {
		if !visited[d.LogicalID] && findCycle(d.LogicalID) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Marshal serializes the template in the named format ("json" or "yaml").
func Marshal(t *wetwire.Template, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return ToJSON(t)
	case "yaml", "yml":
		return ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown template format %q", format)
	}
}
