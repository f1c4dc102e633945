// Package differ provides semantic comparison of synthesized CloudFormation
// templates.
package differ

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-network-go"
)

// OutputType is the Type reported for template outputs in a diff.
const OutputType = "Output"

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons, so reordered
	// principal or subnet lists are not reported.
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
// Resources and outputs are both compared; outputs are reported with
// OutputType.
func Compare(template1, template2 *wetwire.Template, opts Options) (*Result, error) {
	if template1 == nil || template2 == nil {
		return nil, fmt.Errorf("cannot compare a nil template")
	}

	// Values built in memory hold int64 where parsed ones hold float64.
	res1, err := normalizeResources(template1.Resources)
	if err != nil {
		return nil, err
	}
	res2, err := normalizeResources(template2.Resources)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{Resource: name, Type: def.Type})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{Resource: name, Type: def.Type})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			if changes := compareResources(def1, def2, opts); len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	if err := compareOutputs(result, template1.Outputs, template2.Outputs, opts); err != nil {
		return nil, err
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = wetwire.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template wetwire.Template
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	if template.Resources == nil {
		return nil, fmt.Errorf("%s has no Resources section", path)
	}

	return &template, nil
}

// WriteText writes a human-readable rendering of the result.
func WriteText(w io.Writer, r *Result) error {
	var buf bytes.Buffer
	if r.Empty() {
		buf.WriteString("No differences\n")
		_, err := w.Write(buf.Bytes())
		return err
	}

	for _, e := range r.Diff.Added {
		fmt.Fprintf(&buf, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range r.Diff.Removed {
		fmt.Fprintf(&buf, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range r.Diff.Modified {
		fmt.Fprintf(&buf, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(&buf, "    %s\n", c)
		}
	}
	fmt.Fprintf(&buf, "\n%d added, %d removed, %d modified\n", r.Summary.Added, r.Summary.Removed, r.Summary.Modified)

	_, err := w.Write(buf.Bytes())
	return err
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalDependsOn(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

func compareOutputs(result *Result, out1, out2 map[string]wetwire.Output, opts Options) error {
	for name := range out2 {
		if _, exists := out1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{Resource: name, Type: OutputType})
		}
	}
	for name, o1 := range out1 {
		o2, exists := out2[name]
		if !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{Resource: name, Type: OutputType})
			continue
		}

		v1, err := normalizeJSON(o1.Value)
		if err != nil {
			return err
		}
		v2, err := normalizeJSON(o2.Value)
		if err != nil {
			return err
		}

		var changes []string
		if !deepEqual(v1, v2, opts) {
			changes = append(changes, "Value modified")
		}
		if exportName(o1) != exportName(o2) {
			changes = append(changes, fmt.Sprintf("Export changed: %s → %s", exportName(o1), exportName(o2)))
		}
		if len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{Resource: name, Type: OutputType, Changes: changes})
		}
	}
	return nil
}

func exportName(o wetwire.Output) string {
	if o.Export == nil {
		return ""
	}
	return o.Export.Name
}

// compareProperties recursively compares property maps. Nested maps are
// reported by dotted path.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// isIntrinsic reports whether a map is a single intrinsic function call.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts every slice by the JSON encoding of its elements.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		for i, elem := range result {
			data, _ := json.Marshal(elem)
			keys[i] = string(data)
		}
		sort.Sort(byKey{values: result, keys: keys})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	values []any
	keys   []string
}

func (s byKey) Len() int           { return len(s.values) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.values[i], s.values[j] = s.values[j], s.values[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// normalizeResources round-trips properties through JSON so numeric types
// compare equal regardless of origin.
func normalizeResources(resources map[string]wetwire.ResourceDef) (map[string]wetwire.ResourceDef, error) {
	out := make(map[string]wetwire.ResourceDef, len(resources))
	for name, def := range resources {
		if def.Properties != nil {
			props, err := normalizeJSON(def.Properties)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			def.Properties, _ = props.(map[string]any)
		}
		out[name] = def
	}
	return out, nil
}

func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// equalDependsOn compares dependency lists as sets.
func equalDependsOn(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []wetwire.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
