package vm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/strandvm/strand/pkg/bytecode"
)

// errDivisionByZero surfaces through ErrFunctionFailed.
var errDivisionByZero = errors.New("division by zero")

// registerBuiltins installs the operators the compiler lowers
// expressions to, plus the visit-count queries.
func registerBuiltins(l *Library) {
	l.registerBuiltin("visited", func(cx *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		name, err := oneString(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.BoolValue(cx.VisitCount(name) > 0), nil
	})
	l.registerBuiltin("visited_count", func(cx *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		name, err := oneString(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.NumberValue(float64(cx.VisitCount(name))), nil
	})

	l.registerBuiltin("floor", numberUnary(math.Floor))
	l.registerBuiltin("ceil", numberUnary(math.Ceil))

	l.registerBuiltin("Bool.Not", func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, err := oneBool(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.BoolValue(!a), nil
	})
	l.registerBuiltin("Bool.EqualTo", boolBinary(func(a, b bool) bool { return a == b }))
	l.registerBuiltin("Bool.And", boolBinary(func(a, b bool) bool { return a && b }))
	l.registerBuiltin("Bool.Or", boolBinary(func(a, b bool) bool { return a || b }))
	l.registerBuiltin("Bool.Xor", boolBinary(func(a, b bool) bool { return a != b }))

	l.registerBuiltin("Number.UnaryMinus", numberUnary(func(a float64) float64 { return -a }))
	l.registerBuiltin("Number.Add", numberBinary(func(a, b float64) float64 { return a + b }))
	l.registerBuiltin("Number.Minus", numberBinary(func(a, b float64) float64 { return a - b }))
	l.registerBuiltin("Number.Multiply", numberBinary(func(a, b float64) float64 { return a * b }))
	l.registerBuiltin("Number.Divide", func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, b, err := twoNumbers(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		if b == 0 {
			return bytecode.Value{}, errDivisionByZero
		}
		return bytecode.NumberValue(a / b), nil
	})
	l.registerBuiltin("Number.Modulo", func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, b, err := twoNumbers(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		if b == 0 {
			return bytecode.Value{}, errDivisionByZero
		}
		return bytecode.NumberValue(math.Mod(a, b)), nil
	})
	l.registerBuiltin("Number.EqualTo", numberCompare(func(a, b float64) bool { return a == b }))
	l.registerBuiltin("Number.NotEqualTo", numberCompare(func(a, b float64) bool { return a != b }))
	l.registerBuiltin("Number.GreaterThan", numberCompare(func(a, b float64) bool { return a > b }))
	l.registerBuiltin("Number.GreaterThanOrEqualTo", numberCompare(func(a, b float64) bool { return a >= b }))
	l.registerBuiltin("Number.LessThan", numberCompare(func(a, b float64) bool { return a < b }))
	l.registerBuiltin("Number.LessThanOrEqualTo", numberCompare(func(a, b float64) bool { return a <= b }))

	l.registerBuiltin("String.EqualTo", func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		if err := arity(args, 2); err != nil {
			return bytecode.Value{}, err
		}
		a, err := args[0].AsString()
		if err != nil {
			return bytecode.Value{}, err
		}
		b, err := args[1].AsString()
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.BoolValue(a == b), nil
	})

	// Concatenation promotes numbers to strings. Booleans stay out of
	// string building, matching the compiler's operand typing.
	l.registerBuiltin("String.Concat", func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		if err := arity(args, 2); err != nil {
			return bytecode.Value{}, err
		}
		var sb strings.Builder
		for _, v := range args {
			if v.Kind == bytecode.KindBool {
				return bytecode.Value{}, fmt.Errorf("%w: bool is not concatenable", bytecode.ErrWrongType)
			}
			sb.WriteString(v.Format())
		}
		return bytecode.StringValue(sb.String()), nil
	})
}

func arity(args []bytecode.Value, want int) error {
	if len(args) != want {
		return fmt.Errorf("invalid argument count, expected %d, found %d", want, len(args))
	}
	return nil
}

func oneString(args []bytecode.Value) (string, error) {
	if err := arity(args, 1); err != nil {
		return "", err
	}
	return args[0].AsString()
}

func oneBool(args []bytecode.Value) (bool, error) {
	if err := arity(args, 1); err != nil {
		return false, err
	}
	return args[0].AsBool()
}

func oneNumber(args []bytecode.Value) (float64, error) {
	if err := arity(args, 1); err != nil {
		return 0, err
	}
	return args[0].AsNumber()
}

func twoNumbers(args []bytecode.Value) (float64, float64, error) {
	if err := arity(args, 2); err != nil {
		return 0, 0, err
	}
	a, err := args[0].AsNumber()
	if err != nil {
		return 0, 0, err
	}
	b, err := args[1].AsNumber()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func twoBools(args []bytecode.Value) (bool, bool, error) {
	if err := arity(args, 2); err != nil {
		return false, false, err
	}
	a, err := args[0].AsBool()
	if err != nil {
		return false, false, err
	}
	b, err := args[1].AsBool()
	if err != nil {
		return false, false, err
	}
	return a, b, nil
}

func numberUnary(fn func(float64) float64) Func {
	return func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, err := oneNumber(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.NumberValue(fn(a)), nil
	}
}

func numberBinary(fn func(a, b float64) float64) Func {
	return func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, b, err := twoNumbers(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.NumberValue(fn(a, b)), nil
	}
}

func numberCompare(fn func(a, b float64) bool) Func {
	return func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, b, err := twoNumbers(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.BoolValue(fn(a, b)), nil
	}
}

func boolBinary(fn func(a, b bool) bool) Func {
	return func(_ *CallContext, args []bytecode.Value) (bytecode.Value, error) {
		a, b, err := twoBools(args)
		if err != nil {
			return bytecode.Value{}, err
		}
		return bytecode.BoolValue(fn(a, b)), nil
	}
}
