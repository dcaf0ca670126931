// meshsimp is a CLI utility for simplifying triangle meshes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsimp/internal/config"
	"github.com/Faultbox/meshsimp/internal/logger"
	"github.com/Faultbox/meshsimp/pkg/formats"
	"github.com/Faultbox/meshsimp/pkg/math"
	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// errUsage reports bad command-line arguments; the usage text has already
// been printed.
var errUsage = errors.New("invalid arguments")

func main() {
	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil && !errors.Is(err, errUsage) {
		logger.Error("command failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run dispatches a subcommand and writes its report to w.
func run(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "info":
		return cmdInfo(rest, w)
	case "simplify", "s":
		return cmdSimplify(ctx, command, rest, false, w)
	case "lossless", "l":
		return cmdSimplify(ctx, command, rest, true, w)
	case "config":
		return cmdConfig(rest, w)
	case "help", "-h", "--help":
		printUsage(w)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `meshsimp - quadric error mesh simplifier

Usage:
  meshsimp <command> [options]

Commands:
  info <in>                          Show mesh statistics
  simplify [options] <in> <out>      Reduce to a triangle budget
  lossless [options] <in> <out>      Remove only zero-error triangles
  config [path]                      Write the default config file

Simplify options:
  -ratio r     fraction of triangles to keep (default 0.5)
  -target n    absolute triangle budget (>= 1), overrides -ratio
  -agg a       aggressiveness (default 7)
  -border w    border plane weight (default 1, 0 disables)
  -refresh     recompute quadrics on every rebuild
  -v           log progress
  -f           overwrite existing output
  -format f    output format (obj, stl), default by extension
  -config p    config file
  -debug       debug logging
  -log p       also log to file

Examples:
  meshsimp info bunny.obj
  meshsimp simplify -ratio 0.1 bunny.obj bunny_low.obj
  meshsimp simplify -target 5000 -agg 5 part.stl part_low.stl
  meshsimp lossless scan.stl scan_clean.obj`)
}

func cmdInfo(args []string, w io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimp info <in>")
		return errUsage
	}

	m, err := formats.ReadFile(args[0])
	if err != nil {
		return err
	}

	bounds := math.BoundsOf(m.Positions)
	size := bounds.Size()
	center := bounds.Center()

	fmt.Fprintf(w, "Mesh:      %s\n", args[0])
	fmt.Fprintf(w, "Format:    %s\n", formats.FormatFromPath(args[0]))
	fmt.Fprintf(w, "Vertices:  %d\n", len(m.Positions))
	fmt.Fprintf(w, "Triangles: %d\n", m.TriangleCount())
	fmt.Fprintf(w, "Size:      %.4g x %.4g x %.4g (diagonal %.4g)\n", size.X, size.Y, size.Z, bounds.Diagonal())
	fmt.Fprintf(w, "Center:    %.4g %.4g %.4g\n", center.X, center.Y, center.Z)
	fmt.Fprintf(w, "UVs:       %t\n", len(m.TexCoords) > 0)
	for _, lib := range m.MaterialLibs {
		fmt.Fprintf(w, "Library:   %s\n", lib)
	}
	if len(m.MaterialNames) > 0 {
		fmt.Fprintln(w, "Materials:")
		counts := make([]int, len(m.MaterialNames))
		unassigned := 0
		for _, mat := range m.Materials {
			if mat >= 0 && mat < len(counts) {
				counts[mat]++
			} else {
				unassigned++
			}
		}
		for i, name := range m.MaterialNames {
			fmt.Fprintf(w, "  %-20s %d\n", name, counts[i])
		}
		if unassigned > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", "(none)", unassigned)
		}
	}
	return nil
}

func cmdSimplify(ctx context.Context, name string, args []string, lossless bool, w io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fl := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Usage: meshsimp %s [options] <in> <out>\n", name)
		return errUsage
	}
	in, out := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(fl)
	if err != nil {
		return err
	}
	if lossless {
		cfg.Simplify.Lossless = true
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	logger.Debug("config loaded",
		zap.String("config", fl.ConfigPath()),
		zap.Float64("ratio", cfg.Simplify.TargetRatio),
		zap.Int("target", cfg.Simplify.TargetCount),
		zap.Float64("aggressiveness", cfg.Simplify.Aggressiveness),
		zap.Bool("lossless", cfg.Simplify.Lossless))

	if !cfg.Output.Overwrite {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s exists (use -f to overwrite)", out)
		}
	}

	m, err := formats.ReadFile(in)
	if err != nil {
		return err
	}
	logger.Info("mesh loaded",
		zap.String("path", in),
		zap.Int("vertices", len(m.Positions)),
		zap.Int("triangles", m.TriangleCount()))

	s, err := simplify.NewFromMesh(m)
	if err != nil {
		return fmt.Errorf("loading %s: %w", in, err)
	}

	opts := simplify.Options{
		Aggressiveness:  cfg.Simplify.Aggressiveness,
		BorderWeight:    cfg.Simplify.BorderWeight,
		RefreshQuadrics: cfg.Simplify.RefreshQuadrics,
		Verbose:         cfg.Simplify.Verbose,
		Logger:          logger.Named("simplify"),
	}

	start := time.Now()
	var stats simplify.Stats
	if cfg.Simplify.Lossless {
		stats, err = s.SimplifyLossless(ctx, opts)
	} else {
		stats, err = s.Simplify(ctx, cfg.Simplify.Target(m.TriangleCount()), opts)
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("interrupted, writing partial result")
	} else if err != nil {
		return err
	}

	if err := writeMesh(out, cfg.Output.Format, s.ExportMesh()); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s -> %s\n", in, out)
	fmt.Fprintf(w, "Triangles: %d -> %d (%.1f%%)\n", stats.TrianglesBefore, stats.TrianglesAfter,
		percent(stats.TrianglesAfter, stats.TrianglesBefore))
	fmt.Fprintf(w, "Vertices:  %d -> %d\n", stats.VerticesBefore, stats.VerticesAfter)
	fmt.Fprintf(w, "Passes:    %d in %v\n", stats.Iterations, time.Since(start).Round(time.Millisecond))
	return nil
}

// writeMesh writes m to path, using format when set and the extension
// otherwise.
func writeMesh(path, format string, m *simplify.Mesh) error {
	if format == "" {
		return formats.WriteFile(path, m)
	}
	data, err := formats.Encode(m, formats.ParseFormat(format))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(part) / float64(total)
}

func cmdConfig(args []string, w io.Writer) error {
	cfg := config.Default()
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", args[0])
		return nil
	}
	path, err := cfg.Save()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}
