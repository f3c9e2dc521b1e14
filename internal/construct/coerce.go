package construct

import (
	"fmt"
	"math"
	"reflect"
)

// coerce converts a into a value of type to, the way a host setter would
// accept it: boxed numerics are widened or narrowed within their family,
// pointers and values are interchangeable, and slices convert element-wise.
func coerce(a any, to reflect.Type) (reflect.Value, error) {
	if inst, ok := a.(Instance); ok {
		a = inst.Value()
	}
	if a == nil {
		switch to.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil into %s", ErrNotAssignable, to)
	}
	return coerceValue(reflect.ValueOf(a), to)
}

func coerceValue(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	from := v.Type()
	switch {
	case from.AssignableTo(to):
		out := reflect.New(to).Elem()
		out.Set(v)
		return out, nil
	case numericCompatible(from.Kind(), to.Kind()):
		if !fits(v, to) {
			return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrNotAssignable, v.Interface(), to)
		}
		return v.Convert(to), nil
	case from.Kind() == reflect.Pointer && to.Kind() != reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s into %s", ErrNotAssignable, from, to)
		}
		return coerceValue(v.Elem(), to)
	case to.Kind() == reflect.Pointer && from.Kind() != reflect.Pointer:
		elem, err := coerceValue(v, to.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(to.Elem())
		p.Elem().Set(elem)
		return p, nil
	case from.Kind() == reflect.Slice && to.Kind() == reflect.Slice:
		n := v.Len()
		out := reflect.MakeSlice(to, n, n)
		for i := 0; i < n; i++ {
			e := v.Index(i)
			if e.Kind() == reflect.Interface {
				if e.IsNil() {
					return reflect.Value{}, fmt.Errorf("%w: nil element %d into %s", ErrNotAssignable, i, to)
				}
				e = e.Elem()
			}
			if inst, ok := e.Interface().(Instance); ok {
				e = reflect.ValueOf(inst.Value())
			}
			ce, err := coerceValue(e, to.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ce)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s into %s", ErrNotAssignable, from, to)
}

func numericCompatible(from, to reflect.Kind) bool {
	switch {
	case isInteger(from) && isInteger(to):
		return true
	case isFloat(from) && isFloat(to):
		return true
	case isInteger(from) && isFloat(to):
		return true
	}
	return false
}

// fits reports whether the numeric v converts into to without wrapping or
// overflowing.
func fits(v reflect.Value, to reflect.Type) bool {
	zero := reflect.Zero(to)
	switch {
	case isSigned(v.Kind()):
		n := v.Int()
		switch {
		case isSigned(to.Kind()):
			return !zero.OverflowInt(n)
		case isUnsigned(to.Kind()):
			return n >= 0 && !zero.OverflowUint(uint64(n))
		}
		return true
	case isUnsigned(v.Kind()):
		n := v.Uint()
		switch {
		case isSigned(to.Kind()):
			return n <= math.MaxInt64 && !zero.OverflowInt(int64(n))
		case isUnsigned(to.Kind()):
			return !zero.OverflowUint(n)
		}
		return true
	default:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
		return !zero.OverflowFloat(f)
	}
}

func isInteger(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k)
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
