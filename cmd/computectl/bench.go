package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/matmul"
	"github.com/fxnlabs/compute-channel/internal/mma"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	verifyRounds    = 8
	verifyTolerance = 1e-3
)

func benchCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Run concurrent matrix multiplications through one channel",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Value: 256, Usage: "Square matrix dimension"},
			&cli.IntFlag{Name: "callers", Value: 4, Usage: "Concurrent callers, each on its own channel handle"},
			&cli.IntFlag{Name: "iterations", Value: 10, Usage: "Multiplications per caller"},
			&cli.StringFlag{Name: "metrics-address", Usage: "Serve Prometheus metrics on `ADDR` while running"},
			&cli.BoolFlag{Name: "verify", Usage: "Check every product with Freivalds' algorithm"},
		},
		Action: func(c *cli.Context) error {
			size, callers, iterations := c.Int("size"), c.Int("callers"), c.Int("iterations")
			verify := c.Bool("verify")
			if size <= 0 || callers <= 0 || iterations <= 0 {
				return fmt.Errorf("size, callers and iterations must be positive")
			}
			if addr := c.String("metrics-address"); addr != "" {
				(*cfg).Metrics.ListenAddress = addr
			}

			var (
				ch     *channel.Channel
				tuning tune.Config
				arch   mma.Architecture
				log    *zap.Logger
			)
			stop, err := startCompute(c.Context, *cfg, &ch, &tuning, &arch, &log)
			if err != nil {
				return err
			}
			defer stop()
			log = log.Named("bench")

			probe := matmul.NewLauncher(tuning, arch, ch, log)
			key := probe.Key(size, size, size)
			log.Info("Starting benchmark",
				zap.Int("size", size),
				zap.Int("callers", callers),
				zap.Int("iterations", iterations),
				zap.Stringer("key", key),
				zap.String("variant", string(probe.Select(key, mma.TF32, mma.TF32, mma.F32))))

			ch.StartProfile()
			start := time.Now()

			var wg sync.WaitGroup
			errs := make(chan error, callers)
			for i := range callers {
				handle := ch.Clone()
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer handle.Close()
					launcher := matmul.NewLauncher(tuning, arch, handle, log)
					rng := rand.New(rand.NewSource(int64(i)))
					a, b := randomMatrix(rng, size*size), randomMatrix(rng, size*size)
					for range iterations {
						product, err := launcher.Multiply(c.Context, a, b, size, size, size)
						if err != nil {
							errs <- err
							return
						}
						if verify && !matmul.Verify(a, b, product, size, size, size, verifyRounds, verifyTolerance, rng) {
							errs <- fmt.Errorf("caller %d: product failed verification", i)
							return
						}
					}
				}()
			}
			wg.Wait()
			close(errs)
			if err := <-errs; err != nil {
				return err
			}

			profile, err := ch.EndProfileContext(c.Context)
			if err != nil {
				return err
			}
			wall := time.Since(start)
			ops := float64(2*size*size*size) * float64(callers*iterations)

			fmt.Printf("Multiplications: %d of %dx%d\n", callers*iterations, size, size)
			fmt.Printf("Device time:     %s\n", profile.Duration())
			fmt.Printf("Wall time:       %s\n", wall)
			fmt.Printf("Throughput:      %.2f GFLOP/s\n", ops/profile.Duration().Seconds()/1e9)
			fmt.Printf("Memory:          %s\n", ch.MemoryUsage())
			return nil
		},
	}
}

func randomMatrix(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = rng.Float32()
	}
	return out
}
