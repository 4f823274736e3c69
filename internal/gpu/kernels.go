package gpu

import (
	"fmt"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"gonum.org/v1/gonum/mat"
)

// Kernel is a kernel the CPU server can run. Buffers are the resolved bytes
// of the launch bindings, in order.
type Kernel interface {
	compute.Kernel
	Run(buffers [][]byte, scalars [][]byte, count compute.CubeCount) error
}

// KernelFunc adapts a function to Kernel.
type KernelFunc struct {
	Name string
	Fn   func(buffers [][]byte, scalars [][]byte, count compute.CubeCount) error
}

func (k KernelFunc) ID() string { return k.Name }

func (k KernelFunc) Run(buffers [][]byte, scalars [][]byte, count compute.CubeCount) error {
	return k.Fn(buffers, scalars, count)
}

// FillKernel sets every float32 of buffer 0 to Value.
type FillKernel struct {
	Value float32
}

func (FillKernel) ID() string { return "fill_f32" }

func (k FillKernel) Run(buffers [][]byte, _ [][]byte, _ compute.CubeCount) error {
	if len(buffers) != 1 {
		return fmt.Errorf("fill_f32: expected 1 buffer, got %d", len(buffers))
	}
	values := make([]float32, len(buffers[0])/4)
	for i := range values {
		values[i] = k.Value
	}
	putFloat32s(buffers[0], values)
	return nil
}

// AddKernel computes out = lhs + rhs elementwise over float32 buffers
// (lhs, rhs, out).
type AddKernel struct{}

func (AddKernel) ID() string { return "add_f32" }

func (AddKernel) Run(buffers [][]byte, _ [][]byte, _ compute.CubeCount) error {
	if len(buffers) != 3 {
		return fmt.Errorf("add_f32: expected 3 buffers, got %d", len(buffers))
	}
	lhs, rhs := BytesToFloat32s(buffers[0]), BytesToFloat32s(buffers[1])
	if len(lhs) != len(rhs) || len(buffers[2]) < 4*len(lhs) {
		return fmt.Errorf("add_f32: size mismatch lhs=%d rhs=%d out=%dB", len(lhs), len(rhs), len(buffers[2]))
	}
	for i := range lhs {
		lhs[i] += rhs[i]
	}
	putFloat32s(buffers[2], lhs)
	return nil
}

// MatmulVariant names an implementation strategy of MatmulKernel.
type MatmulVariant string

const (
	MatmulNaive      MatmulVariant = "naive"
	MatmulTiled      MatmulVariant = "tiled"
	MatmulTensorCore MatmulVariant = "tensor_core"
)

// MatmulKernel computes C = A * B over float32 buffers (a, b, c) where A is
// M×K, B is K×N and C is M×N, all row-major.
type MatmulKernel struct {
	M, K, N int
	Variant MatmulVariant
}

func (k MatmulKernel) ID() string {
	return "matmul_" + string(k.Variant)
}

func (k MatmulKernel) Run(buffers [][]byte, _ [][]byte, _ compute.CubeCount) error {
	if len(buffers) != 3 {
		return fmt.Errorf("%s: expected 3 buffers, got %d", k.ID(), len(buffers))
	}
	a, b := BytesToFloat32s(buffers[0]), BytesToFloat32s(buffers[1])

	// Validate dimensions
	if len(a) < k.M*k.K {
		return fmt.Errorf("matrix A size mismatch: expected %d, got %d", k.M*k.K, len(a))
	}
	if len(b) < k.K*k.N {
		return fmt.Errorf("matrix B size mismatch: expected %d, got %d", k.K*k.N, len(b))
	}
	if len(buffers[2]) < 4*k.M*k.N {
		return fmt.Errorf("matrix C size mismatch: expected %d bytes, got %d", 4*k.M*k.N, len(buffers[2]))
	}

	var c []float32
	switch k.Variant {
	case MatmulNaive:
		c = matmulNaive(a, b, k.M, k.K, k.N)
	case MatmulTiled, MatmulTensorCore:
		// The host has no tensor cores; both run through gonum.
		c = matmulDense(a, b, k.M, k.K, k.N)
	default:
		return fmt.Errorf("%w: matmul variant %q", ErrUnsupportedKernel, k.Variant)
	}
	putFloat32s(buffers[2], c)
	return nil
}

func matmulNaive(a, b []float32, m, k, n int) []float32 {
	result := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := float32(0.0)
			for l := 0; l < k; l++ {
				sum += a[i*k+l] * b[l*n+j]
			}
			result[i*n+j] = sum
		}
	}
	return result
}

func matmulDense(a, b []float32, m, k, n int) []float32 {
	if m == 0 || k == 0 || n == 0 {
		return make([]float32, m*n)
	}
	ma := mat.NewDense(m, k, Float32ToFloat64(a[:m*k]))
	mb := mat.NewDense(k, n, Float32ToFloat64(b[:k*n]))

	var res mat.Dense
	res.Mul(ma, mb)
	return Float64ToFloat32(res.RawMatrix().Data)
}
