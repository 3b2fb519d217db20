// Command pointvol samples a random point cloud, interpolates it onto a
// voxel volume, remaps a value range and renders the result.
//
// Usage:
//
//	pointvol [flags]
//
// Every flag can also be set in pointvol.yaml or through POINTVOL_
// environment variables, e.g. POINTVOL_INTERP_KERNEL=gaussian.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/soypat/pointvol/internal/config"
	"github.com/soypat/pointvol/internal/pipeline"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "pointvol:", err)
		return 2
	}
	lvl, _ := cfg.Level() // validated by Load.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return 1
	}
	for _, path := range res.Artifacts {
		fmt.Println(path)
	}
	return 0
}
