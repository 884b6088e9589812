package lace

import (
	"fmt"
	"reflect"
	"strings"
)

// Value is a resolved attribute binding. Depending on the binding's
// source it holds a plain value (literal bindings and $.path model
// reads), node references (back-reference and collection bindings), or a
// fragment (the implicit content binding). A Value with no underlying
// value is absent; optional bindings that didn't resolve are absent
// rather than errors.
type Value struct {
	val any
}

// StringValue wraps a string in a Value. It's mostly useful in tests and
// when invoking factories by hand.
func StringValue(s string) Value {
	return Value{val: s}
}

// NodesValue wraps node references in a Value.
func NodesValue(nodes ...*Node) Value {
	return Value{val: nodes}
}

// FragmentValue wraps a fragment in a Value.
func FragmentValue(frag *Document) Value {
	return Value{val: frag}
}

// IsAbsent reports whether the binding resolved to nothing.
func (v Value) IsAbsent() bool {
	return v.val == nil
}

// String returns the Value as a string. Non-string scalars are formatted
// with the fmt package; absent and node-reference Values return the
// empty string.
func (v Value) String() string {
	switch val := v.val.(type) {
	case nil:
		return ""
	case string:
		return val
	case []*Node, *Document:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Nodes returns the node references the Value holds, or nil for any
// other kind of Value.
func (v Value) Nodes() []*Node {
	nodes, ok := v.val.([]*Node)
	if !ok {
		return nil
	}
	return nodes
}

// Fragment returns the fragment the Value holds, or nil for any other
// kind of Value.
func (v Value) Fragment() *Document {
	frag, ok := v.val.(*Document)
	if !ok {
		return nil
	}
	return frag
}

// Interface returns the Value's underlying value. For $.path bindings
// this is whatever the model held at that path, untouched.
func (v Value) Interface() any {
	return v.val
}

// Attrs holds a component instance's resolved attributes, keyed by
// attribute name. The engine always includes the implicit "content"
// attribute, holding the component tag's original inner DOM, before any
// declared attributes are resolved.
type Attrs map[string]Value

// String returns the named attribute as a string, or the empty string if
// it's absent.
func (a Attrs) String(name string) string {
	return a[name].String()
}

// Nodes returns the node references held by the named attribute, or nil.
func (a Attrs) Nodes(name string) []*Node {
	return a[name].Nodes()
}

// Fragment returns the fragment held by the named attribute, or nil.
func (a Attrs) Fragment(name string) *Document {
	return a[name].Fragment()
}

// Has reports whether the named attribute resolved to a value.
func (a Attrs) Has(name string) bool {
	return !a[name].IsAbsent()
}

// ContentAttr is the name of the implicit binding carrying a component
// tag's inner DOM.
const ContentAttr = "content"

// bindingKind classifies where a binding's value comes from. Startup
// resolution can only enforce static bindings; model bindings are
// enforced per request, when there's a model to read.
type bindingKind int

const (
	bindingLiteral bindingKind = iota
	bindingModel
	bindingSelector
	bindingCollection
)

func classifyBinding(expr string) bindingKind {
	switch {
	case strings.HasPrefix(expr, "$."):
		return bindingModel
	case strings.HasPrefix(expr, `\`):
		return bindingSelector
	case strings.HasPrefix(expr, "@"):
		return bindingCollection
	default:
		return bindingLiteral
	}
}

// static reports whether the binding can be fully resolved at startup,
// without a request model.
func (k bindingKind) static() bool {
	return k != bindingModel
}

// resolveBinding evaluates one declared attribute binding against the
// calling component's model and DOM.
//
//   - plain values are returned verbatim;
//   - $.path walks the model attribute by attribute;
//   - \selector returns the matching parent-DOM nodes,
//     \selector:content their concatenated text;
//   - @name returns every <name> element in the parent DOM (or, if no
//     tag matches, every .name element), in document order.
//
// Bindings that resolve to nothing yield an absent Value; the caller
// decides whether absence is fatal, because required-ness belongs to the
// receiving component, not to the binding syntax.
func resolveBinding(expr string, model any, parent *Document) (Value, error) {
	switch classifyBinding(expr) {
	case bindingModel:
		val, ok := lookupModelPath(model, strings.TrimPrefix(expr, "$."))
		if !ok {
			return Value{}, nil
		}
		return Value{val: val}, nil
	case bindingSelector:
		selector := strings.TrimPrefix(expr, `\`)
		content := false
		if strings.HasSuffix(selector, ":content") {
			selector = strings.TrimSuffix(selector, ":content")
			content = true
		}
		matches, err := parent.Find(selector)
		if err != nil {
			return Value{}, err
		}
		if len(matches) < 1 {
			return Value{}, nil
		}
		if content {
			var buf strings.Builder
			for _, match := range matches {
				buf.WriteString(match.Text())
			}
			return Value{val: buf.String()}, nil
		}
		return Value{val: matches}, nil
	case bindingCollection:
		name := strings.TrimPrefix(expr, "@")
		matches, err := parent.Find(name)
		if err != nil {
			return Value{}, err
		}
		if len(matches) < 1 {
			matches, err = parent.Find("." + name)
			if err != nil {
				return Value{}, err
			}
		}
		if len(matches) < 1 {
			return Value{}, nil
		}
		return Value{val: matches}, nil
	default:
		return Value{val: expr}, nil
	}
}

// lookupModelPath walks a dotted path off the model, one segment at a
// time. Pointers and interfaces are dereferenced as they're crossed;
// structs are read by exported field name (exact match first, then
// case-folded, so $.fif matches a FIF field); string-keyed maps are read
// by key the same way. The second return is false if any segment can't
// be resolved.
func lookupModelPath(model any, path string) (any, bool) {
	current := reflect.ValueOf(model)
	for _, segment := range strings.Split(path, ".") {
		for current.Kind() == reflect.Pointer || current.Kind() == reflect.Interface {
			if current.IsNil() {
				return nil, false
			}
			current = current.Elem()
		}
		switch current.Kind() {
		case reflect.Struct:
			field, ok := structField(current, segment)
			if !ok {
				return nil, false
			}
			current = field
		case reflect.Map:
			if current.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			entry, ok := mapEntry(current, segment)
			if !ok {
				return nil, false
			}
			current = entry
		default:
			return nil, false
		}
	}
	for current.Kind() == reflect.Pointer || current.Kind() == reflect.Interface {
		if current.IsNil() {
			return nil, false
		}
		current = current.Elem()
	}
	if !current.IsValid() {
		return nil, false
	}
	return current.Interface(), true
}

func structField(val reflect.Value, name string) (reflect.Value, bool) {
	typ := val.Type()
	if field, ok := typ.FieldByName(name); ok && field.IsExported() {
		return val.FieldByIndex(field.Index), true
	}
	for pos := 0; pos < typ.NumField(); pos++ {
		field := typ.Field(pos)
		if field.IsExported() && strings.EqualFold(field.Name, name) {
			return val.Field(pos), true
		}
	}
	return reflect.Value{}, false
}

func mapEntry(val reflect.Value, key string) (reflect.Value, bool) {
	entry := val.MapIndex(reflect.ValueOf(key).Convert(val.Type().Key()))
	if entry.IsValid() {
		return entry, true
	}
	iter := val.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), key) {
			return iter.Value(), true
		}
	}
	return reflect.Value{}, false
}
