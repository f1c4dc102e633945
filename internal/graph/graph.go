// Package graph generates DOT and Mermaid dependency graphs from a
// synthesized descriptor graph.
package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
	"github.com/lex00/wetwire-network-go/internal/serialize"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatDOT:
		return FormatDOT, nil
	case FormatMermaid:
		return FormatMermaid, nil
	}
	return "", fmt.Errorf("unknown graph format %q (expected dot or mermaid)", s)
}

// Generator creates dependency graphs from descriptors.
type Generator struct {
	// IncludePrincipals includes principal associations, which templates fold
	// into their share.
	IncludePrincipals bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(descriptors *descriptor.Graph, w io.Writer) error {
	graph, err := g.buildGraph(descriptors)
	if err != nil {
		return err
	}

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err = w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(descriptors *descriptor.Graph) (string, error) {
	var sb strings.Builder
	if err := g.Generate(descriptors, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure from descriptors.
func (g *Generator) buildGraph(descriptors *descriptor.Graph) (*dot.Graph, error) {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	var included []descriptor.Descriptor
	for _, d := range descriptors.Descriptors() {
		if d.Kind == descriptor.KindPrincipalAssociation && !g.IncludePrincipals {
			continue
		}
		included = append(included, d)
	}

	nodes := make(map[string]dot.Node, len(included))
	if g.ClusterByType {
		g.addClusteredNodes(graph, included, nodes)
	} else {
		g.addNodes(graph, included, nodes)
	}

	for _, d := range included {
		refs, err := referenced(d)
		if err != nil {
			return nil, err
		}
		for _, dep := range d.DependsOn {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[d.LogicalID], to)
			// Ordering-only edges have no intrinsic behind them.
			if !refs[dep] {
				e.Attr("style", "dashed")
			}
		}
	}

	return graph, nil
}

// referenced returns the logical ids a descriptor's properties reference.
func referenced(d descriptor.Descriptor) (map[string]bool, error) {
	props, err := serialize.Resource(d.Properties)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", d.LogicalID, err)
	}
	refs := make(map[string]bool)
	for _, id := range serialize.References(props) {
		refs[id] = true
	}
	return refs, nil
}

// addNodes adds resource nodes without clustering.
func (g *Generator) addNodes(graph *dot.Graph, descriptors []descriptor.Descriptor, nodes map[string]dot.Node) {
	for _, d := range descriptors {
		nodes[d.LogicalID] = styleNode(graph.Node(d.LogicalID), d)
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, descriptors []descriptor.Descriptor, nodes map[string]dot.Node) {
	byService := make(map[string][]descriptor.Descriptor)
	for _, d := range descriptors {
		service := d.Kind.Service()
		byService[service] = append(byService[service], d)
	}

	services := make([]string, 0, len(byService))
	for service := range byService {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		if len(members) == 1 {
			d := members[0]
			nodes[d.LogicalID] = styleNode(graph.Node(d.LogicalID), d)
			continue
		}

		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, d := range members {
			nodes[d.LogicalID] = styleNode(cluster.Node(d.LogicalID), d)
		}
	}
}

func styleNode(n dot.Node, d descriptor.Descriptor) dot.Node {
	n.Label(d.LogicalID + "\\n[" + string(d.Kind) + "]")
	if d.Kind == descriptor.KindPrincipalAssociation {
		n.Attr("shape", "ellipse")
		n.Attr("style", "dashed")
	}
	return n
}
