package task

import (
	"reflect"
	"sort"
)

// Flatten expands a dependency declaration into its ordered leaf items,
// depth-first. Slices keep their declaration order; map values are visited
// in sorted-key order so that key order never influences downstream
// identity. Leaves are task nodes or external work items; anything else is a
// contract violation.
func Flatten(decl interface{}) ([]interface{}, error) {
	if decl == nil {
		return nil, nil
	}
	switch d := decl.(type) {
	case autoDiscover:
		return nil, &ContractViolationError{Value: d}
	case Node:
		return []interface{}{d}, nil
	case External:
		return []interface{}{d}, nil
	}

	rv := reflect.ValueOf(decl)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []interface{}
		for i := 0; i < rv.Len(); i++ {
			items, err := Flatten(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &ContractViolationError{Value: decl}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		var out []interface{}
		for _, k := range keys {
			items, err := Flatten(rv.MapIndex(reflect.ValueOf(k)).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	}
	return nil, &ContractViolationError{Value: decl}
}

// Discover scans a node's exported struct fields for dependency nodes and
// exposes them as a field-name keyed mapping. A field counts when it is a
// task node or a non-empty slice whose elements are all task nodes; an empty
// slice is never a dependency collection.
func Discover(n Node) map[string]interface{} {
	rv := reflect.ValueOf(n)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	out := make(map[string]interface{})
	for i := 0; i < rv.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		fv := rv.Field(i)
		if node, ok := asNode(fv); ok {
			out[sf.Name] = node
			continue
		}
		if fv.Kind() == reflect.Slice && fv.Len() > 0 {
			nodes := make([]interface{}, 0, fv.Len())
			homogeneous := true
			for j := 0; j < fv.Len(); j++ {
				node, ok := asNode(fv.Index(j))
				if !ok {
					homogeneous = false
					break
				}
				nodes = append(nodes, node)
			}
			if homogeneous {
				out[sf.Name] = nodes
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asNode(v reflect.Value) (Node, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
	}
	node, ok := v.Interface().(Node)
	return node, ok
}
