package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestOp_Apply(t *testing.T) {
	tests := []struct {
		name    string
		op      Op
		in      uint32
		want    uint32
		wantErr error
	}{
		{"increment", Increment(), 1, 2, nil},
		{"increment at max", Increment(), math.MaxUint32, math.MaxUint32, ErrOverflow},
		{"increment below max", Increment(), math.MaxUint32 - 1, math.MaxUint32, nil},
		{"double", Double(), 21, 42, nil},
		{"double overflow", Double(), 1 << 31, 1 << 31, ErrOverflow},
		{"halve odd", Halve(), 7, 3, nil},
		{"halve zero", Halve(), 0, 0, nil},
		{"add", Add(10), 5, 15, nil},
		{"add overflow", Add(2), math.MaxUint32 - 1, math.MaxUint32 - 1, ErrOverflow},
		{"subtract to zero", Subtract(5), 5, 0, nil},
		{"subtract underflow", Subtract(6), 5, 5, ErrUnderflow},
		{"unknown kind", Op{Kind: 99}, 5, 5, ErrInvalidOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Apply(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Apply() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOp_IncrementIsSuccessorBelowMax(t *testing.T) {
	for _, v := range []uint32{0, 1, 1000, math.MaxUint32 / 2, math.MaxUint32 - 1} {
		got, err := Increment().Apply(v)
		if err != nil {
			t.Fatalf("Increment(%d) error = %v", v, err)
		}
		if got != v+1 {
			t.Errorf("Increment(%d) = %d, want %d", v, got, v+1)
		}
	}
}

func TestParseOpKind(t *testing.T) {
	tests := []struct {
		name    string
		want    OpKind
		wantErr bool
	}{
		{"increment", OpIncrement, false},
		{" Double ", OpDouble, false},
		{"HALVE", OpHalve, false},
		{"add", OpAdd, false},
		{"subtract", OpSubtract, false},
		{"multiply", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOpKind(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOpKind(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOpKind(%q) = %v, want %v", tt.name, got, tt.want)
		}
		if !tt.wantErr && got.String() != strings.ToLower(strings.TrimSpace(tt.name)) {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
}
