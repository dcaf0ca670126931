package simplify

import (
	"context"
	"fmt"
	gomath "math"

	"go.uber.org/zap"
)

const (
	// maxIterations caps the threshold-driven outer loop.
	maxIterations = 100
	// maxLosslessIterations caps the lossless outer loop.
	maxLosslessIterations = 9999
	// rebuildInterval is how often, in outer iterations, the threshold-driven
	// loop rebuilds adjacency.
	rebuildInterval = 5
	// thresholdScale scales (iteration+3)^aggressiveness into an error
	// threshold.
	thresholdScale = 1e-9
	// losslessThreshold only admits collapses that introduce no error.
	losslessThreshold = 2.220446049250313e-16
	// DefaultAggressiveness is a good trade-off between speed and quality;
	// 5..8 work well for most models.
	DefaultAggressiveness = 7
)

// Options controls a simplification run.
type Options struct {
	// Aggressiveness is the exponent of the threshold growth. Higher values
	// reach the target in fewer iterations at lower quality. Values <= 0 are
	// accepted but make little progress.
	Aggressiveness float64
	// BorderWeight adds, when positive, a constraint plane per open edge so
	// that moving a boundary costs error proportional to the weight.
	BorderWeight float64
	// RefreshQuadrics recomputes quadrics, normals, borders and edge errors
	// on every adjacency rebuild instead of only the first.
	RefreshQuadrics bool
	// Verbose logs progress through Logger.
	Verbose bool
	Logger  *zap.Logger
	// OnIteration, if set, is called after every outer iteration with the
	// number of live triangles.
	OnIteration func(iteration, triangles int)
}

// DefaultOptions returns the recommended options.
func DefaultOptions() Options {
	return Options{
		Aggressiveness: DefaultAggressiveness,
		BorderWeight:   1,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Stats summarises a run.
type Stats struct {
	Iterations      int
	TrianglesBefore int
	TrianglesAfter  int
	VerticesBefore  int
	VerticesAfter   int
}

// Threshold returns the collapse error threshold used at iteration.
func Threshold(iteration int, aggressiveness float64) float64 {
	return thresholdScale * gomath.Pow(float64(iteration+3), aggressiveness)
}

// Simplify collapses edges until at most targetCount triangles remain or
// the iteration cap is hit. A target at or above the current count is a
// no-op. ctx is checked between outer iterations; on cancellation the mesh
// is compacted in its partially simplified state and the context error is
// returned.
func (s *Simplifier) Simplify(ctx context.Context, targetCount int, opts Options) (Stats, error) {
	log := opts.logger()
	stats := s.begin()

	deletedTriangles := 0
	triangleCount := len(s.triangles)
	var err error

	for iteration := 0; iteration < maxIterations; iteration++ {
		if triangleCount-deletedTriangles <= targetCount {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		stats.Iterations++

		if iteration%rebuildInterval == 0 {
			s.updateMesh(iteration, opts)
		}
		s.clearDirty()

		threshold := Threshold(iteration, opts.Aggressiveness)
		if opts.Verbose && iteration%rebuildInterval == 0 {
			log.Info("simplify iteration",
				zap.Int("iteration", iteration),
				zap.Int("triangles", triangleCount-deletedTriangles),
				zap.Float64("threshold", threshold))
		}

		for i := range s.triangles {
			t := &s.triangles[i]
			if t.err[3] > threshold || t.deleted || t.dirty {
				continue
			}
			s.collapseFirstEdge(i, threshold, &deletedTriangles)
			if triangleCount-deletedTriangles <= targetCount {
				break
			}
		}

		if opts.OnIteration != nil {
			opts.OnIteration(iteration, triangleCount-deletedTriangles)
		}
	}

	return s.finish(stats, log, opts.Verbose, err)
}

// SimplifyLossless collapses only edges whose error is below machine
// epsilon, removing redundant geometry without changing the shape. It stops
// after the first pass that deletes nothing.
func (s *Simplifier) SimplifyLossless(ctx context.Context, opts Options) (Stats, error) {
	log := opts.logger()
	stats := s.begin()

	deletedTriangles := 0
	var err error

	for iteration := 0; iteration < maxLosslessIterations; iteration++ {
		if err = ctx.Err(); err != nil {
			break
		}
		stats.Iterations++

		s.updateMesh(iteration, opts)
		s.clearDirty()
		live := len(s.triangles)

		if opts.Verbose {
			log.Info("lossless iteration",
				zap.Int("iteration", iteration),
				zap.Int("triangles", live))
		}

		for i := range s.triangles {
			t := &s.triangles[i]
			if t.err[3] > losslessThreshold || t.deleted || t.dirty {
				continue
			}
			s.collapseFirstEdge(i, losslessThreshold, &deletedTriangles)
		}

		if opts.OnIteration != nil {
			opts.OnIteration(iteration, live-deletedTriangles)
		}
		if deletedTriangles <= 0 {
			break
		}
		deletedTriangles = 0
	}

	return s.finish(stats, log, opts.Verbose, err)
}

func (s *Simplifier) begin() Stats {
	for i := range s.triangles {
		s.triangles[i].deleted = false
	}
	return Stats{
		TrianglesBefore: len(s.triangles),
		VerticesBefore:  len(s.vertices),
	}
}

func (s *Simplifier) finish(stats Stats, log *zap.Logger, verbose bool, err error) (Stats, error) {
	s.compactMesh()
	stats.TrianglesAfter = len(s.triangles)
	stats.VerticesAfter = len(s.vertices)
	if verbose {
		log.Info("simplification done",
			zap.Int("iterations", stats.Iterations),
			zap.Int("triangles_before", stats.TrianglesBefore),
			zap.Int("triangles_after", stats.TrianglesAfter),
			zap.Int("vertices_after", stats.VerticesAfter))
	}
	if err != nil {
		return stats, fmt.Errorf("simplify: %w", err)
	}
	return stats, nil
}

func (s *Simplifier) clearDirty() {
	for i := range s.triangles {
		s.triangles[i].dirty = false
	}
}
