package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/gpu"
	"github.com/urfave/cli/v2"
)

type scenario struct {
	name string
	run  func(ctx context.Context, ch *channel.Channel) error
}

var scenarios = []scenario{
	{"create-read", scenarioCreateRead},
	{"memory", scenarioMemory},
	{"profile", scenarioProfile},
	{"two-callers", scenarioTwoCallers},
	{"execute-sync", scenarioExecuteSync},
}

func scenarioCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:      "scenario",
		Usage:     "Run the channel smoke scenarios",
		ArgsUsage: "[name...]",
		Action: func(c *cli.Context) error {
			selected := scenarios
			if c.Args().Present() {
				selected = nil
				for _, name := range c.Args().Slice() {
					s, ok := findScenario(name)
					if !ok {
						return fmt.Errorf("unknown scenario %q", name)
					}
					selected = append(selected, s)
				}
			}

			var ch *channel.Channel
			stop, err := startCompute(c.Context, *cfg, &ch)
			if err != nil {
				return err
			}
			defer stop()

			for _, s := range selected {
				if err := s.run(c.Context, ch); err != nil {
					return fmt.Errorf("scenario %s: %w", s.name, err)
				}
				fmt.Printf("%-14s ok\n", s.name)
			}
			return nil
		},
	}
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

// scenarioCreateRead reads back what it created.
func scenarioCreateRead(ctx context.Context, ch *channel.Channel) error {
	want := []byte{1, 2, 3, 4}
	h, err := ch.Create(want)
	if err != nil {
		return err
	}
	defer ch.Release(h)

	got, err := ch.Read(ctx, []compute.Binding{h.Binding()})
	if err != nil {
		return err
	}
	if string(got[0]) != string(want) {
		return fmt.Errorf("read %v, want %v", got[0], want)
	}
	return nil
}

// scenarioMemory checks usage accounting around an allocation and a cleanup.
func scenarioMemory(_ context.Context, ch *channel.Channel) error {
	h, err := ch.Empty(16)
	if err != nil {
		return err
	}
	defer ch.Release(h)

	before := ch.MemoryUsage()
	if before.BytesInUse < 16 {
		return fmt.Errorf("%d bytes in use after allocating 16", before.BytesInUse)
	}
	ch.MemoryCleanup()
	after := ch.MemoryUsage()
	if after.BytesInUse > before.BytesInUse {
		return fmt.Errorf("cleanup grew usage from %d to %d bytes", before.BytesInUse, after.BytesInUse)
	}
	return nil
}

// scenarioProfile times a few launches.
func scenarioProfile(ctx context.Context, ch *channel.Channel) error {
	h, err := ch.Empty(1024)
	if err != nil {
		return err
	}
	defer ch.Release(h)

	ch.StartProfile()
	for i := range 4 {
		ch.Execute(gpu.FillKernel{Value: float32(i)}, compute.NewCubeCount(1, 1, 1), compute.NewBindings(h.Binding()), compute.ExecutionChecked)
	}
	d, err := ch.EndProfileContext(ctx)
	if err != nil {
		return err
	}
	if d.Duration() < 0 {
		return fmt.Errorf("negative profile duration %s", d.Duration())
	}
	return nil
}

// scenarioTwoCallers runs create-read on two clones at once.
func scenarioTwoCallers(ctx context.Context, ch *channel.Channel) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		handle := ch.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer handle.Close()
			errs[i] = scenarioCreateRead(ctx, handle)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// scenarioExecuteSync checks that a launch is visible after Sync.
func scenarioExecuteSync(ctx context.Context, ch *channel.Channel) error {
	h, err := ch.Empty(16)
	if err != nil {
		return err
	}
	defer ch.Release(h)

	ch.Execute(gpu.FillKernel{Value: 2.5}, compute.NewCubeCount(1, 1, 1), compute.NewBindings(h.Binding()), compute.ExecutionChecked)
	if err := ch.Sync(ctx); err != nil {
		return err
	}

	got, err := ch.Read(ctx, []compute.Binding{h.Binding()})
	if err != nil {
		return err
	}
	for _, v := range gpu.BytesToFloat32s(got[0]) {
		if v != 2.5 {
			return fmt.Errorf("read %v after fill", gpu.BytesToFloat32s(got[0]))
		}
	}
	return nil
}
