// Package construct builds native host instances from a resolved type and an
// ordered list of construction strategies.
package construct

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/HsiangNianian/AMonItor/bridge/internal/resolver"
)

var (
	ErrNoConstructor  = errors.New("no matching constructor")
	ErrFieldCount     = errors.New("field count mismatch")
	ErrNotAssignable  = errors.New("value not assignable")
	ErrNoStrategies   = errors.New("no construction strategies")
	ErrConstructPanic = errors.New("native constructor panicked")
)

// ConstructionError reports a strategy whose shape did not match the live
// type. It is expected across host versions; callers fall back to the next
// strategy.
type ConstructionError struct {
	Type          string
	StrategyIndex int
	Strategy      string
	Cause         error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s with strategy %d %s: %v", e.Type, e.StrategyIndex, e.Strategy, e.Cause)
}

func (e *ConstructionError) Unwrap() error { return e.Cause }

// Instance is an opaque native instance.
type Instance struct {
	handle *resolver.TypeHandle
	value  reflect.Value
}

// Value returns the native instance, always a pointer to the native struct.
func (i Instance) Value() any {
	if !i.value.IsValid() {
		return nil
	}
	return i.value.Interface()
}

func (i Instance) Type() *resolver.TypeHandle { return i.handle }

func (i Instance) IsZero() bool { return !i.value.IsValid() }

type Constructor struct {
	log *slog.Logger
}

func New(logger *slog.Logger) *Constructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Constructor{log: logger}
}

// Construct runs a single strategy.
func (c *Constructor) Construct(h *resolver.TypeHandle, s Strategy) (Instance, error) {
	return c.construct(h, 0, s)
}

// Build tries strategies in order and returns the first instance produced.
// When all fail it returns the last ConstructionError.
func (c *Constructor) Build(h *resolver.TypeHandle, strategies ...Strategy) (Instance, error) {
	if len(strategies) == 0 {
		return Instance{}, &ConstructionError{Type: h.String(), StrategyIndex: -1, Cause: ErrNoStrategies}
	}
	var last error
	for i, s := range strategies {
		inst, err := c.construct(h, i, s)
		if err == nil {
			if i > 0 {
				c.log.Debug("constructed with fallback strategy", "type", h.String(), "index", i, "strategy", s.String())
			}
			return inst, nil
		}
		c.log.Debug("construction strategy failed", "type", h.String(), "index", i, "strategy", s.String(), "err", err)
		last = err
	}
	return Instance{}, last
}

func (c *Constructor) construct(h *resolver.TypeHandle, index int, s Strategy) (Instance, error) {
	fail := func(s Strategy, err error) (Instance, error) {
		return Instance{}, &ConstructionError{Type: h.String(), StrategyIndex: index, Strategy: s.String(), Cause: err}
	}

	var (
		v   reflect.Value
		err error
	)
	switch s := s.(type) {
	case Direct:
		v, err = direct(h, s.Args)
	case FieldInject:
		v, err = inject(h, s.Values)
	case Lazy:
		if s.Prepare == nil {
			return fail(s, errors.New("lazy strategy has no prepare func"))
		}
		prepared, perr := s.Prepare()
		if perr != nil {
			return fail(s, perr)
		}
		return c.construct(h, index, prepared)
	default:
		return fail(s, fmt.Errorf("unsupported strategy %T", s))
	}
	if err != nil {
		return fail(s, err)
	}
	return Instance{handle: h, value: v}, nil
}

func direct(h *resolver.TypeHandle, args []any) (reflect.Value, error) {
	var mismatch error
	for _, ctor := range h.Constructors() {
		ft := ctor.Type()
		if ft.IsVariadic() || ft.NumIn() != len(args) {
			continue
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			v, err := coerce(a, ft.In(i))
			if err != nil {
				mismatch = fmt.Errorf("%w: %s argument %d: %w", ErrNoConstructor, ft, i, err)
				in = nil
				break
			}
			in[i] = v
		}
		if in == nil {
			continue
		}
		out, err := call(ctor, in)
		if err != nil {
			mismatch = fmt.Errorf("%s: %w", ft, err)
			continue
		}
		return asPointer(out), nil
	}
	if mismatch != nil {
		return reflect.Value{}, mismatch
	}
	return reflect.Value{}, fmt.Errorf("%w: %s has no %d-argument constructor", ErrNoConstructor, h.Name(), len(args))
}

func call(ctor reflect.Value, in []reflect.Value) (out reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrConstructPanic, r)
		}
	}()
	res := ctor.Call(in)
	if len(res) == 2 && !res[1].IsNil() {
		return reflect.Value{}, res[1].Interface().(error)
	}
	if res[0].Kind() == reflect.Pointer && res[0].IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: constructor returned nil", ErrNoConstructor)
	}
	return res[0], nil
}

func inject(h *resolver.TypeHandle, values []any) (reflect.Value, error) {
	fields := h.Fields()
	if len(fields) != len(values) {
		return reflect.Value{}, fmt.Errorf("%w: %s has %d fields, want %d", ErrFieldCount, h.Name(), len(fields), len(values))
	}
	ptr := reflect.New(h.Type())
	for i, f := range fields {
		fv := ptr.Elem().FieldByIndex(f.Index)
		if !fv.CanSet() {
			return reflect.Value{}, fmt.Errorf("%w: field %d %s is not settable", ErrNotAssignable, i, f.Name)
		}
		v, err := coerce(values[i], f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %d %s: %w", i, f.Name, err)
		}
		fv.Set(v)
	}
	return ptr, nil
}

func asPointer(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer {
		return v
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}
