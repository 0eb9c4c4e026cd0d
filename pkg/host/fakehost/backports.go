package fakehost

import (
	"math"
)

// backportsClass hosts the polyfills the Backport evaluator redirects to.
// They exist at every API level.
func backportsClass() *Class {
	return &Class{ClassName: "liveedit/Backports", Methods: []*Method{
		Static("floorMod", "(II)I", backportFloorModInt),
		Static("floorMod", "(JJ)J", backportFloorModLong),
		Static("floorDiv", "(II)I", backportFloorDivInt),
		Static("floorDiv", "(JJ)J", backportFloorDivLong),
		Static("addExact", "(II)I", backportAddExactInt),
		Static("addExact", "(JJ)J", backportAddExactLong),
		Static("hashCode", "(I)I", func(h *Host, _ any, args []any) (any, error) {
			return args[0].(int32), nil
		}),
		Static("hashCode", "(J)I", func(h *Host, _ any, args []any) (any, error) {
			v := args[0].(int64)
			return int32(v ^ int64(uint64(v)>>32)), nil
		}),
		Static("hashCode", "(Z)I", func(h *Host, _ any, args []any) (any, error) {
			return booleanHash(args[0].(bool)), nil
		}),
		Static("requireNonNull", "(Ljava/lang/Object;Ljava/lang/String;)Ljava/lang/Object;", backportRequireNonNull),
		Static("equals", "(Ljava/lang/Object;Ljava/lang/Object;)Z", backportEquals),
		Static("hashCode", "(Ljava/lang/Object;)I", backportHashCode),
		Static("hash", "([Ljava/lang/Object;)I", backportHash),
	}}
}

func divByZero(h *Host) error {
	return h.Throw("java/lang/ArithmeticException", "/ by zero")
}

func backportFloorDivInt(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int32), args[1].(int32)
	if y == 0 {
		return nil, divByZero(h)
	}
	if x == math.MinInt32 && y == -1 {
		return x, nil
	}
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q, nil
}

func backportFloorDivLong(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int64), args[1].(int64)
	if y == 0 {
		return nil, divByZero(h)
	}
	if x == math.MinInt64 && y == -1 {
		return x, nil
	}
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q, nil
}

func backportFloorModInt(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int32), args[1].(int32)
	if y == 0 {
		return nil, divByZero(h)
	}
	if y == -1 {
		return int32(0), nil
	}
	m := x % y
	if m != 0 && ((m < 0) != (y < 0)) {
		m += y
	}
	return m, nil
}

func backportFloorModLong(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int64), args[1].(int64)
	if y == 0 {
		return nil, divByZero(h)
	}
	if y == -1 {
		return int64(0), nil
	}
	m := x % y
	if m != 0 && ((m < 0) != (y < 0)) {
		m += y
	}
	return m, nil
}

func backportAddExactInt(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int32), args[1].(int32)
	r := x + y
	if (x^r)&(y^r) < 0 {
		return nil, h.Throw("java/lang/ArithmeticException", "integer overflow")
	}
	return r, nil
}

func backportAddExactLong(h *Host, _ any, args []any) (any, error) {
	x, y := args[0].(int64), args[1].(int64)
	r := x + y
	if (x^r)&(y^r) < 0 {
		return nil, h.Throw("java/lang/ArithmeticException", "long overflow")
	}
	return r, nil
}

func backportRequireNonNull(h *Host, _ any, args []any) (any, error) {
	if args[0] == nil {
		msg, _ := args[1].(string)
		return nil, h.Throw("java/lang/NullPointerException", msg)
	}
	return args[0], nil
}

func backportEquals(h *Host, _ any, args []any) (any, error) {
	return h.Equals(args[0], args[1]), nil
}

func backportHashCode(h *Host, _ any, args []any) (any, error) {
	return h.HashCode(args[0]), nil
}

func backportHash(h *Host, _ any, args []any) (any, error) {
	arr, ok := args[0].(*Array)
	if !ok {
		return int32(0), nil
	}
	result := int32(1)
	for _, e := range arr.Elems {
		result = 31*result + h.HashCode(e)
	}
	return result, nil
}
