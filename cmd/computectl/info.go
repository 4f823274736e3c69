package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/gpu"
	"github.com/fxnlabs/compute-channel/internal/mma"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"github.com/urfave/cli/v2"
)

func infoCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the device, autotune level and supported MMA shapes",
		Action: func(c *cli.Context) error {
			var (
				server compute.Server
				ch     *channel.Channel
				level  tune.Config
				arch   mma.Architecture
			)
			stop, err := startCompute(c.Context, *cfg, &server, &ch, &level, &arch)
			if err != nil {
				return err
			}
			defer stop()

			figure.NewFigure("computectl", "", true).Print()
			fmt.Println("")

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if device, ok := server.(gpu.Device); ok {
				info := device.DeviceInfo()
				fmt.Fprintf(w, "Device:\t%s\n", info.Name)
				fmt.Fprintf(w, "Backend:\t%s\n", info.Backend)
				fmt.Fprintf(w, "Driver:\t%s\n", info.DriverVersion)
				if info.TotalMemory > 0 {
					fmt.Fprintf(w, "Memory limit:\t%d bytes\n", info.TotalMemory)
				} else {
					fmt.Fprintln(w, "Memory limit:\tunlimited")
				}
			}
			fmt.Fprintf(w, "Available backends:\t%s\n", strings.Join(gpu.Backends(), ", "))
			fmt.Fprintf(w, "Architecture:\t%d\n", arch.Version)
			fmt.Fprintf(w, "Autotune level:\t%d\n", level.Level)
			fmt.Fprintf(w, "Memory:\t%s\n", ch.MemoryUsage())
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println("")
			combos := mma.Supported(arch)
			if len(combos) == 0 {
				fmt.Println("MMA: not supported on this architecture")
				return nil
			}
			fmt.Println("Supported MMA combinations:")
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "A\tB\tC\tTiles (MxNxK)")
			for _, combo := range combos {
				tiles := make([]string, len(combo.Dims))
				for i, d := range combo.Dims {
					tiles[i] = d.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", combo.A, combo.B, combo.C, strings.Join(tiles, ", "))
			}
			return w.Flush()
		},
	}
}
