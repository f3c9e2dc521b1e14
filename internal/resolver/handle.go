package resolver

import (
	"reflect"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// SyntheticTag marks a struct field the host adds for its own bookkeeping.
// Such fields are not positional packet fields.
const SyntheticTag = "synthetic"

// TypeHandle is a resolved native type.
type TypeHandle struct {
	namespace string
	desc      *host.TypeDescriptor
	fields    []reflect.StructField
}

func newTypeHandle(namespace string, desc *host.TypeDescriptor) *TypeHandle {
	h := &TypeHandle{namespace: namespace, desc: desc}
	for i := 0; i < desc.Type.NumField(); i++ {
		f := desc.Type.Field(i)
		if f.Name == "_" || f.Tag.Get("host") == SyntheticTag {
			continue
		}
		h.fields = append(h.fields, f)
	}
	return h
}

// NewTypeHandle wraps a descriptor without going through a resolver.
func NewTypeHandle(namespace string, desc *host.TypeDescriptor) *TypeHandle {
	return newTypeHandle(namespace, desc)
}

func (h *TypeHandle) Namespace() string { return h.namespace }

func (h *TypeHandle) Qualified() string { return h.desc.Namespace }

func (h *TypeHandle) Name() string { return h.desc.Name }

// Type is the native struct type.
func (h *TypeHandle) Type() reflect.Type { return h.desc.Type }

// Fields returns the declared instance fields in order, without blank or
// synthetic ones.
func (h *TypeHandle) Fields() []reflect.StructField {
	return append([]reflect.StructField(nil), h.fields...)
}

func (h *TypeHandle) Field(name string) (reflect.StructField, bool) {
	for _, f := range h.fields {
		if f.Name == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// Method looks name up on the pointer type so pointer receivers are found.
func (h *TypeHandle) Method(name string) (reflect.Method, bool) {
	return reflect.PointerTo(h.desc.Type).MethodByName(name)
}

func (h *TypeHandle) Constructors() []reflect.Value {
	return append([]reflect.Value(nil), h.desc.Constructors...)
}

func (h *TypeHandle) String() string {
	return h.desc.Namespace + "." + h.desc.Name
}
