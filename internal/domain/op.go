package domain

import (
	"math"
	"strings"
)

// OpKind identifies an arithmetic operation on a record value.
type OpKind uint8

const (
	OpIncrement OpKind = iota + 1
	OpDouble
	OpHalve
	OpAdd
	OpSubtract
)

// String returns the operation name used by the CLI and in logs.
func (k OpKind) String() string {
	switch k {
	case OpIncrement:
		return "increment"
	case OpDouble:
		return "double"
	case OpHalve:
		return "halve"
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	default:
		return "unknown"
	}
}

// TakesAmount reports whether the operation uses Op.Amount.
func (k OpKind) TakesAmount() bool {
	return k == OpAdd || k == OpSubtract
}

// Op is a single value mutation. Amount is ignored by kinds that do not take one.
type Op struct {
	Kind   OpKind
	Amount uint32
}

// Increment returns an op adding one.
func Increment() Op { return Op{Kind: OpIncrement} }

// Double returns an op multiplying by two.
func Double() Op { return Op{Kind: OpDouble} }

// Halve returns an op performing floor division by two.
func Halve() Op { return Op{Kind: OpHalve} }

// Add returns an op adding amount.
func Add(amount uint32) Op { return Op{Kind: OpAdd, Amount: amount} }

// Subtract returns an op subtracting amount.
func Subtract(amount uint32) Op { return Op{Kind: OpSubtract, Amount: amount} }

// ParseOpKind maps an operation name to its kind.
func ParseOpKind(name string) (OpKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "increment":
		return OpIncrement, nil
	case "double":
		return OpDouble, nil
	case "halve":
		return OpHalve, nil
	case "add":
		return OpAdd, nil
	case "subtract":
		return OpSubtract, nil
	default:
		return 0, ErrInvalidOp
	}
}

// Apply computes the op on v. Arithmetic never wraps: results past
// math.MaxUint32 fail with ErrOverflow and results below zero with ErrUnderflow.
func (o Op) Apply(v uint32) (uint32, error) {
	switch o.Kind {
	case OpIncrement:
		return checkedAdd(v, 1)
	case OpDouble:
		return checkedAdd(v, v)
	case OpHalve:
		return v / 2, nil
	case OpAdd:
		return checkedAdd(v, o.Amount)
	case OpSubtract:
		if o.Amount > v {
			return v, ErrUnderflow
		}
		return v - o.Amount, nil
	default:
		return v, ErrInvalidOp
	}
}

func checkedAdd(a, b uint32) (uint32, error) {
	if b > math.MaxUint32-a {
		return a, ErrOverflow
	}
	return a + b, nil
}
