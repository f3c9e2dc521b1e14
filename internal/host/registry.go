package host

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrDuplicateType = errors.New("host: type already defined")
	ErrBadDefinition = errors.New("host: bad type definition")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// TypeDescriptor is the introspectable description of one native type.
type TypeDescriptor struct {
	Namespace string
	Name      string
	// Type is always a struct type.
	Type reflect.Type
	// Constructors are func values returning Type or *Type, optionally
	// followed by an error.
	Constructors []reflect.Value
}

// Registry holds the native types of the running host, keyed by qualified
// namespace and type name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]map[string]*TypeDescriptor
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]map[string]*TypeDescriptor)}
}

// Define registers the struct type of sample under namespace, with its native
// constructors.
func (r *Registry) Define(namespace string, sample any, ctors ...any) error {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrBadDefinition, sample)
	}

	desc := &TypeDescriptor{Namespace: namespace, Name: t.Name(), Type: t}
	for _, c := range ctors {
		v := reflect.ValueOf(c)
		if v.Kind() != reflect.Func {
			return fmt.Errorf("%w: constructor %T for %s is not a func", ErrBadDefinition, c, t.Name())
		}
		ft := v.Type()
		if ft.NumOut() < 1 || ft.NumOut() > 2 {
			return fmt.Errorf("%w: constructor %s for %s", ErrBadDefinition, ft, t.Name())
		}
		out := ft.Out(0)
		if out != t && !(out.Kind() == reflect.Pointer && out.Elem() == t) {
			return fmt.Errorf("%w: constructor %s does not return %s", ErrBadDefinition, ft, t.Name())
		}
		if ft.NumOut() == 2 && ft.Out(1) != errorType {
			return fmt.Errorf("%w: constructor %s second result must be error", ErrBadDefinition, ft)
		}
		desc.Constructors = append(desc.Constructors, v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.types[namespace]
	if !ok {
		ns = make(map[string]*TypeDescriptor)
		r.types[namespace] = ns
	}
	if _, exists := ns[desc.Name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateType, namespace, desc.Name)
	}
	ns[desc.Name] = desc
	return nil
}

func (r *Registry) Lookup(namespace, name string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.types[namespace][name]
	return desc, ok
}
