// Package matmul launches matrix multiplications through a compute channel,
// picking a kernel variant per autotune key.
package matmul

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/gpu"
	"github.com/fxnlabs/compute-channel/internal/mma"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"go.uber.org/zap"
)

// Variant is a matmul kernel implementation.
type Variant = gpu.MatmulVariant

const (
	VariantNaive      = gpu.MatmulNaive
	VariantTiled      = gpu.MatmulTiled
	VariantTensorCore = gpu.MatmulTensorCore
)

const (
	maxKeyDim = 4096
	// tiledMinDim is the smallest dimension worth shared-memory tiling.
	tiledMinDim = 64
	// cubeDim is the side of the square thread block a launch is split into.
	cubeDim = 16
)

var ErrDimensionMismatch = errors.New("matmul: operand size does not match dimensions")

// Key groups problem sizes that share a kernel choice.
type Key struct {
	M, K, N int
}

func (k Key) String() string {
	return fmt.Sprintf("m=%d k=%d n=%d", k.M, k.K, k.N)
}

// Launcher runs float32 matrix products on a channel. It is safe for
// concurrent use.
type Launcher struct {
	tune    tune.Config
	arch    mma.Architecture
	channel *channel.Channel
	logger  *zap.Logger

	mu     sync.Mutex
	chosen map[Key]Variant
}

// NewLauncher creates a launcher issuing its work on ch. The launcher does
// not own ch.
func NewLauncher(cfg tune.Config, arch mma.Architecture, ch *channel.Channel, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		tune:    cfg,
		arch:    arch,
		channel: ch,
		logger:  logger.Named("matmul"),
		chosen:  make(map[Key]Variant),
	}
}

// Key anchors a problem size.
func (l *Launcher) Key(m, k, n int) Key {
	opts := tune.AnchorOptions{Min: 1, Max: maxKeyDim}
	return Key{
		M: l.tune.Anchor(m, opts),
		K: l.tune.Anchor(k, opts),
		N: l.tune.Anchor(n, opts),
	}
}

// Select picks the variant for key with operands a and b accumulating into c.
func (l *Launcher) Select(key Key, a, b, c mma.Elem) Variant {
	for _, tile := range mma.Tiles(l.arch, a, b, c) {
		if key.M%tile.M == 0 && key.N%tile.N == 0 && key.K%tile.K == 0 {
			return VariantTensorCore
		}
	}
	if key.M >= tiledMinDim && key.K >= tiledMinDim && key.N >= tiledMinDim {
		return VariantTiled
	}
	return VariantNaive
}

// variant returns the cached choice for key. Float32 operands use tensor
// cores in tf32.
func (l *Launcher) variant(key Key) Variant {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.chosen[key]; ok {
		return v
	}
	v := l.Select(key, mma.TF32, mma.TF32, mma.F32)
	l.chosen[key] = v
	l.logger.Debug("Selected matmul variant", zap.Stringer("key", key), zap.String("variant", string(v)))
	return v
}

// Multiply returns the row-major product of a (m×k) and b (k×n).
//
// Allocations always wait for their handles so that they can be released,
// ctx only bounds the wait for the result.
func (l *Launcher) Multiply(ctx context.Context, a, b []float32, m, k, n int) ([]float32, error) {
	if m < 0 || k < 0 || n < 0 {
		return nil, fmt.Errorf("%w: negative dimension %dx%dx%d", ErrDimensionMismatch, m, k, n)
	}
	if len(a) != m*k {
		return nil, fmt.Errorf("%w: a has %d elements, want %d", ErrDimensionMismatch, len(a), m*k)
	}
	if len(b) != k*n {
		return nil, fmt.Errorf("%w: b has %d elements, want %d", ErrDimensionMismatch, len(b), k*n)
	}

	lhs, err := l.channel.Create(gpu.Float32sToBytes(a))
	if err != nil {
		return nil, fmt.Errorf("failed to upload lhs: %w", err)
	}
	defer l.channel.Release(lhs)

	rhs, err := l.channel.Create(gpu.Float32sToBytes(b))
	if err != nil {
		return nil, fmt.Errorf("failed to upload rhs: %w", err)
	}
	defer l.channel.Release(rhs)

	out, err := l.channel.Empty(uint64(4 * m * n))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate output: %w", err)
	}
	defer l.channel.Release(out)

	kernel := gpu.MatmulKernel{M: m, K: k, N: n, Variant: l.variant(l.Key(m, k, n))}
	count := compute.NewCubeCount(ceilDiv(n, cubeDim), ceilDiv(m, cubeDim), 1)
	l.channel.Execute(kernel, count, compute.NewBindings(lhs.Binding(), rhs.Binding(), out.Binding()), compute.ExecutionChecked)

	data, err := l.channel.Read(ctx, []compute.Binding{out.Binding()})
	if err != nil {
		return nil, err
	}
	return gpu.BytesToFloat32s(data[0]), nil
}

func ceilDiv(a, b int) uint32 {
	if a <= 0 {
		return 1
	}
	return uint32((a + b - 1) / b)
}
