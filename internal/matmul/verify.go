package matmul

import (
	"math"
	"math/rand"

	"github.com/fxnlabs/compute-channel/internal/gpu"
	"gonum.org/v1/gonum/mat"
)

// Verify checks c = a*b with Freivalds' algorithm: for random 0/1 vectors r
// it compares a(br) with cr. A wrong product passes one round with
// probability at most 1/2, so iterations rounds bound false positives by
// 2^-iterations. tolerance is relative to the magnitude of a(br).
func Verify(a, b, c []float32, m, k, n, iterations int, tolerance float64, rng *rand.Rand) bool {
	if len(a) != m*k || len(b) != k*n || len(c) != m*n {
		return false
	}
	if m == 0 || n == 0 {
		return true
	}
	if k == 0 {
		for _, v := range c {
			if v != 0 {
				return false
			}
		}
		return true
	}

	ma := mat.NewDense(m, k, gpu.Float32ToFloat64(a))
	mb := mat.NewDense(k, n, gpu.Float32ToFloat64(b))
	mc := mat.NewDense(m, n, gpu.Float32ToFloat64(c))

	r := mat.NewVecDense(n, nil)
	var br, abr, cr mat.VecDense
	for range iterations {
		for j := range n {
			r.SetVec(j, float64(rng.Intn(2)))
		}
		br.MulVec(mb, r)
		abr.MulVec(ma, &br)
		cr.MulVec(mc, r)

		for i := range m {
			want, got := abr.AtVec(i), cr.AtVec(i)
			if math.Abs(want-got) > tolerance*math.Max(1, math.Abs(want)) {
				return false
			}
		}
	}
	return true
}

