package scan

import (
	"reflect"
	"strings"
)

// Definition returns the generic type definition identity of t: its package
// path and name with any type arguments removed. Pointers are dereferenced.
// Unnamed types are identified by their string form.
func Definition(t reflect.Type) string {
	t = indirect(t)
	if t == nil {
		return ""
	}
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return t.PkgPath() + "." + name
}

// inheritsOrImplements reports whether candidate is, embeds at any depth, or
// implements the capability type
func inheritsOrImplements(candidate, capability reflect.Type) bool {
	_, ok := Match(candidate, capability)
	return ok
}

// Match walks the embedding chain of candidate breadth-first looking for a
// type with the same generic definition as capability. This holds for
// interface capabilities too, so an embedded repo[Person] field matches a
// repo[T] capability. A type implementing a non-generic interface capability
// (directly or through promoted methods) also matches. The matching node of
// the chain is returned.
//
// The empty interface never matches.
func Match(candidate, capability reflect.Type) (reflect.Type, bool) {
	candidate = indirect(candidate)
	if candidate == nil || capability == nil {
		return nil, false
	}

	isInterface := capability.Kind() == reflect.Interface
	if isInterface && capability.NumMethod() == 0 {
		return nil, false
	}
	target := Definition(capability)

	queue := []reflect.Type{candidate}
	visited := make(map[reflect.Type]bool)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		if Definition(current) == target {
			return current, true
		}
		if isInterface && implements(current, capability) {
			return current, true
		}

		if current.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < current.NumField(); i++ {
			f := current.Field(i)
			if f.Anonymous {
				queue = append(queue, indirect(f.Type))
			}
		}
	}

	return nil, false
}

func implements(t, iface reflect.Type) bool {
	if t.Implements(iface) {
		return true
	}
	return t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(iface)
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
