// Package pipeline runs the per-frame fetch, resample and project steps that
// turn a WRF dataset into a sequence of cross-sections.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rtm0/wrfxsect/internal/grid"
	"github.com/rtm0/wrfxsect/internal/timeindex"
	"github.com/rtm0/wrfxsect/internal/wrfout"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

var (
	// ErrNoShade is returned for a request without a shade variable.
	ErrNoShade = errors.New("no shade variable requested")
	// ErrNotVector is returned when the horizontal vector slot names a
	// scalar variable.
	ErrNotVector = errors.New("variable is not a horizontal vector")
	// ErrNotScalar is returned when the vertical vector slot names a vector
	// variable.
	ErrNotScalar = errors.New("variable is not a scalar")
)

const profileCacheSize = 16

// Source is the dataset side of the pipeline. *wrfout.Accessor implements
// it.
type Source interface {
	xsect.Source
	Times() []time.Time
	Resolve(name string) (wrfout.Variable, error)
	FetchVariable(v wrfout.Variable, frame int) (wrfout.Quantity, error)
}

// Request describes the cross-sections to extract from every frame.
type Request struct {
	Start, End grid.GeoPoint
	Vertical   xsect.VerticalCoord
	Levels     []float64

	// Shade is required. A vector variable is reduced to its magnitude.
	Shade      string
	ShadeScale Scale
	// Contour is optional. A vector variable is reduced to its magnitude.
	Contour      string
	ContourScale Scale
	// VectorHorizontal and VectorVertical are optional. The horizontal
	// vector is projected on the line; the vertical one is a scalar such
	// as "wa".
	VectorHorizontal string
	VectorVertical   string
}

// Scale converts a slot into display units as value*Multiplier+Addition,
// e.g. Pa to hPa. A zero Multiplier is treated as 1.
type Scale struct {
	Multiplier float64
	Addition   float64
}

func (s Scale) identity() bool {
	return (s.Multiplier == 0 || s.Multiplier == 1) && s.Addition == 0
}

// Apply rescales cs in place. Missing cells stay missing.
func (s Scale) Apply(cs *xsect.CrossSection) {
	if cs == nil || s.identity() {
		return
	}
	m := s.Multiplier
	if m == 0 {
		m = 1
	}
	for _, row := range cs.Values {
		for i, v := range row {
			row[i] = v*m + s.Addition
		}
	}
}

// Plan is a validated Request, ready to be run against every frame.
type Plan struct {
	Request

	shade, contour       *wrfout.Variable
	horizontal, vertical *wrfout.Variable
	line                 *xsect.Line
}

// Line returns the sampled cross-section line.
func (p *Plan) Line() *xsect.Line {
	return p.line
}

// Frame holds the cross-sections extracted from one timestamp. Optional
// slots are nil when not requested.
type Frame struct {
	Index int
	Time  time.Time

	Shade   *xsect.CrossSection
	Contour *xsect.CrossSection
	Along   *xsect.CrossSection
	Upward  *xsect.CrossSection
	Terrain []float64
}

type lineKey struct {
	start, end grid.GeoPoint
}

// Extractor extracts cross-sections frame by frame from a Source.
type Extractor struct {
	logger    *slog.Logger
	src       Source
	index     *timeindex.Index
	resampler *xsect.Resampler
	projector *xsect.Projector
	profiles  *lru.Cache[lineKey, []float64]
}

// NewExtractor builds the time index of src. projector may be shared between
// extractors so that the small-area warning is logged once per process.
func NewExtractor(logger *slog.Logger, src Source, projector *xsect.Projector) (*Extractor, error) {
	index, err := timeindex.New(src.Times())
	if err != nil {
		return nil, err
	}
	profiles, err := lru.New[lineKey, []float64](profileCacheSize)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		logger:    logger,
		src:       src,
		index:     index,
		resampler: xsect.NewResampler(src),
		projector: projector,
		profiles:  profiles,
	}, nil
}

// Times returns the regenerated time axis frames are extracted at.
func (e *Extractor) Times() []time.Time {
	return e.index.Times()
}

// Step returns the time step between frames.
func (e *Extractor) Step() time.Duration {
	return e.index.Step()
}

// Validate checks everything about req that does not depend on a frame, so
// that configuration errors fail before any frame is processed.
func (e *Extractor) Validate(req Request) (*Plan, error) {
	if err := xsect.CheckLevels(req.Vertical, req.Levels); err != nil {
		return nil, err
	}
	if req.Shade == "" {
		return nil, ErrNoShade
	}
	line, err := e.resampler.Line(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	p := &Plan{Request: req, line: line}

	resolve := func(name string) (*wrfout.Variable, error) {
		if name == "" {
			return nil, nil
		}
		v, err := e.src.Resolve(name)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	if p.shade, err = resolve(req.Shade); err != nil {
		return nil, err
	}
	if p.contour, err = resolve(req.Contour); err != nil {
		return nil, err
	}
	if p.horizontal, err = resolve(req.VectorHorizontal); err != nil {
		return nil, err
	}
	if p.vertical, err = resolve(req.VectorVertical); err != nil {
		return nil, err
	}
	if p.horizontal != nil {
		if !p.horizontal.Vector {
			return nil, fmt.Errorf("%w: %q", ErrNotVector, p.horizontal.Name)
		}
		if err := xsect.CheckLine(req.Start, req.End); err != nil {
			return nil, err
		}
	}
	if p.vertical != nil && p.vertical.Vector {
		return nil, fmt.Errorf("%w: %q", ErrNotScalar, p.vertical.Name)
	}
	if _, err := e.Terrain(p); err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	return p, nil
}

// Frame extracts the cross-sections of plan at timestamp t.
func (e *Extractor) Frame(plan *Plan, t time.Time) (*Frame, error) {
	frame, err := e.index.Frame(t)
	if err != nil {
		return nil, err
	}
	vert, err := e.resampler.Vertical(plan.Vertical, frame)
	if err != nil {
		return nil, err
	}
	slice := func(f *grid.Field) (*xsect.CrossSection, error) {
		return xsect.Slice(f, vert, plan.line, plan.Levels, plan.Vertical)
	}
	scalar := func(v *wrfout.Variable) (*xsect.CrossSection, error) {
		if v == nil {
			return nil, nil
		}
		q, err := e.src.FetchVariable(*v, frame)
		if err != nil {
			return nil, err
		}
		f := q.Scalar
		if q.IsVector() {
			if f, err = q.Vector.Magnitude(); err != nil {
				return nil, err
			}
		}
		return slice(f)
	}

	out := &Frame{Index: frame, Time: t}
	if out.Shade, err = scalar(plan.shade); err != nil {
		return nil, fmt.Errorf("shade: %w", err)
	}
	plan.ShadeScale.Apply(out.Shade)
	if out.Contour, err = scalar(plan.contour); err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}
	plan.ContourScale.Apply(out.Contour)
	if plan.horizontal != nil {
		q, err := e.src.FetchVariable(*plan.horizontal, frame)
		if err != nil {
			return nil, fmt.Errorf("vector: %w", err)
		}
		if !q.IsVector() {
			return nil, fmt.Errorf("%w: %q", ErrNotVector, plan.horizontal.Name)
		}
		us, err := slice(q.Vector.U)
		if err != nil {
			return nil, fmt.Errorf("vector: %w", err)
		}
		vs, err := slice(q.Vector.V)
		if err != nil {
			return nil, fmt.Errorf("vector: %w", err)
		}
		if out.Along, err = e.projector.ProjectSection(us, vs, plan.Start, plan.End); err != nil {
			return nil, fmt.Errorf("vector: %w", err)
		}
	}
	if out.Upward, err = scalar(plan.vertical); err != nil {
		return nil, fmt.Errorf("vector: %w", err)
	}
	if out.Terrain, err = e.Terrain(plan); err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	return out, nil
}

// Terrain returns the terrain profile under the plan's line. Profiles are
// static and cached per line.
func (e *Extractor) Terrain(plan *Plan) ([]float64, error) {
	key := lineKey{plan.Start, plan.End}
	if p, ok := e.profiles.Get(key); ok {
		return p, nil
	}
	ter, err := e.src.Terrain()
	if err != nil {
		return nil, err
	}
	p := xsect.Profile(ter, plan.line)
	e.profiles.Add(key, p)
	return p, nil
}

// Run extracts every frame of the time axis, at most concurrency at a time,
// and returns them in time order. The first error stops the run.
func (e *Extractor) Run(ctx context.Context, plan *Plan, concurrency int) ([]*Frame, error) {
	times := e.index.Times()
	frames := make([]*Frame, len(times))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	start := time.Now()
	for i, t := range times {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := e.Frame(plan, t)
			if err != nil {
				return fmt.Errorf("frame %s: %w", t.Format(time.RFC3339), err)
			}
			frames[i] = f
			e.logger.Debug("frame extracted", "time", t, "frame", f.Index, "columns", f.Shade.NumColumns())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Info("cross-sections extracted", "frames", len(frames), "in", time.Since(start).Round(time.Millisecond))
	return frames, nil
}
