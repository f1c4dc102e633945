// Package serialize converts descriptor property structs into CloudFormation
// property maps and inspects the intrinsic references inside them.
package serialize

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Resource serializes a property struct to CloudFormation resource
// properties. It handles:
// - field names taken verbatim (CidrBlock, VpcId)
// - omitting nil/zero values
// - nested structs such as port ranges
// - intrinsics (converted through their MarshalJSON)
func Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, err
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value serializes an arbitrary value, typically an output value built from
// intrinsics, into plain maps, slices and scalars.
func Value(v any) (any, error) {
	return serializeValue(reflect.ValueOf(v))
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
// Pointers are zero only when nil, so *bool false survives.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		if v.Kind() == reflect.Ptr {
			if m, ok := v.Interface().(json.Marshaler); ok {
				return roundTrip(m)
			}
		}
		return serializeValue(v.Elem())
	}

	if v.CanInterface() {
		if m, ok := v.Interface().(json.Marshaler); ok {
			return roundTrip(m)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any)
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[iter.Key().String()] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
}

func roundTrip(m json.Marshaler) (any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// References returns the sorted, unique logical ids referenced by Ref,
// Fn::GetAtt and Fn::Sub anywhere inside a serialized value. Pseudo
// parameters such as AWS::Region are skipped.
func References(v any) []string {
	seen := make(map[string]bool)
	collectRefs(v, seen)

	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(v any, seen map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["Ref"].(string); ok && len(val) == 1 {
			addRef(ref, seen)
			return
		}
		if args, ok := val["Fn::GetAtt"].([]any); ok && len(val) == 1 {
			if len(args) > 0 {
				if name, ok := args[0].(string); ok {
					addRef(name, seen)
				}
			}
			return
		}
		if sub, ok := val["Fn::Sub"]; ok && len(val) == 1 {
			collectSub(sub, seen)
			return
		}
		for _, child := range val {
			collectRefs(child, seen)
		}
	case []any:
		for _, child := range val {
			collectRefs(child, seen)
		}
	}
}

// collectSub handles both the string and the [string, vars] forms.
func collectSub(sub any, seen map[string]bool) {
	var body string
	switch s := sub.(type) {
	case string:
		body = s
	case []any:
		if len(s) == 0 {
			return
		}
		body, _ = s[0].(string)
		if len(s) > 1 {
			collectRefs(s[1], seen)
		}
	}

	for {
		start := strings.Index(body, "${")
		if start < 0 {
			return
		}
		end := strings.Index(body[start:], "}")
		if end < 0 {
			return
		}
		name := body[start+2 : start+end]
		body = body[start+end+1:]

		if strings.HasPrefix(name, "!") {
			continue
		}
		if dot := strings.Index(name, "."); dot >= 0 {
			name = name[:dot]
		}
		addRef(name, seen)
	}
}

func addRef(name string, seen map[string]bool) {
	if name == "" || strings.HasPrefix(name, "AWS::") {
		return
	}
	seen[name] = true
}
