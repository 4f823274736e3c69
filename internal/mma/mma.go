// Package mma describes which matrix-multiply-accumulate (tensor core)
// shapes a device architecture can run.
package mma

import (
	"fmt"
	"slices"
)

// MinimumVersion is the first architecture version with tensor cores.
const MinimumVersion = 70

// Elem is an element type of an MMA operand.
type Elem int

const (
	F16 Elem = iota
	BF16
	TF32
	F32
	I8
	I32
)

func (e Elem) String() string {
	switch e {
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case TF32:
		return "tf32"
	case F32:
		return "f32"
	case I8:
		return "i8"
	case I32:
		return "i32"
	default:
		return fmt.Sprintf("Elem(%d)", int(e))
	}
}

// Dim is the M×N×K shape of one MMA tile.
type Dim struct {
	M, N, K int
}

func (d Dim) String() string {
	return fmt.Sprintf("%dx%dx%d", d.M, d.N, d.K)
}

// Combination is a set of tile shapes available for operands A and B
// accumulating into C.
type Combination struct {
	A, B, C Elem
	Dims    []Dim
}

// Architecture identifies a device generation, e.g. 80 for compute
// capability 8.0.
type Architecture struct {
	Version int
}

var (
	wmmaDims = []Dim{{16, 16, 16}, {32, 8, 16}, {8, 32, 16}}
	tf32Dims = []Dim{{16, 16, 8}}
)

// Supported lists the MMA combinations of arch. It is empty for
// architectures without tensor cores.
func Supported(arch Architecture) []Combination {
	if arch.Version < MinimumVersion {
		return nil
	}
	combos := make([]Combination, 0, 5)
	for _, elems := range [][3]Elem{
		{F16, F16, F16},
		{F16, F16, F32},
		{BF16, BF16, F32},
		{I8, I8, I32},
	} {
		combos = append(combos, Combination{A: elems[0], B: elems[1], C: elems[2], Dims: slices.Clone(wmmaDims)})
	}
	combos = append(combos, Combination{A: TF32, B: TF32, C: F32, Dims: slices.Clone(tf32Dims)})
	return combos
}

// Tiles returns the tile shapes arch supports for the given operand types.
func Tiles(arch Architecture, a, b, c Elem) []Dim {
	for _, combo := range Supported(arch) {
		if combo.A == a && combo.B == b && combo.C == c {
			return combo.Dims
		}
	}
	return nil
}

// Supports reports whether arch can run a dim tile with these operand types.
func Supports(arch Architecture, a, b, c Elem, dim Dim) bool {
	return slices.Contains(Tiles(arch, a, b, c), dim)
}
