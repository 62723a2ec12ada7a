package vm

import (
	"github.com/rtm0/wrfxsect/internal/grid"
	"github.com/rtm0/wrfxsect/internal/pipeline"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

// Record is a collection of cross-section values at one column and level of
// one frame. Absent and missing values are NaN.
type Record struct {
	// Dimensions
	Timestamp int64
	Column    int
	Latitude  float64
	Longitude float64
	Level     float64

	// Metrics
	Shade   float64
	Contour float64
	Along   float64
	Upward  float64
}

// Scanner turns extracted frames into records one frame at a time.
type Scanner struct {
	frames []*pipeline.Frame
	points []grid.GeoPoint
	pos    int
	recs   []Record
}

// NewScanner creates a scanner over frames whose columns lie at points.
func NewScanner(frames []*pipeline.Frame, points []grid.GeoPoint) *Scanner {
	return &Scanner{frames: frames, points: points}
}

// Scan prepares the records of the next frame. It returns false when all
// frames have been scanned.
func (s *Scanner) Scan() bool {
	if s.pos >= len(s.frames) {
		s.recs = nil
		return false
	}
	s.recs = frameRecords(s.frames[s.pos], s.points)
	s.pos++
	return true
}

// Records returns the records prepared by the last Scan.
func (s *Scanner) Records() []Record {
	return s.recs
}

// TotalRecCount returns the number of records over all frames.
func (s *Scanner) TotalRecCount() int {
	var n int
	for _, f := range s.frames {
		if f.Shade != nil {
			n += len(f.Shade.Levels) * len(s.points)
		}
	}
	return n
}

func frameRecords(f *pipeline.Frame, points []grid.GeoPoint) []Record {
	if f.Shade == nil {
		return nil
	}
	ts := f.Time.UnixMilli()
	value := func(cs *xsect.CrossSection, c, l int) float64 {
		if cs == nil {
			return grid.Missing
		}
		return cs.At(c, l)
	}
	recs := make([]Record, 0, len(f.Shade.Levels)*len(points))
	for l, level := range f.Shade.Levels {
		for c, p := range points {
			recs = append(recs, Record{
				Timestamp: ts,
				Column:    c,
				Latitude:  p.Lat,
				Longitude: p.Lon,
				Level:     level,
				Shade:     value(f.Shade, c, l),
				Contour:   value(f.Contour, c, l),
				Along:     value(f.Along, c, l),
				Upward:    value(f.Upward, c, l),
			})
		}
	}
	return recs
}
