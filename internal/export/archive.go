package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rtm0/wrfxsect/internal/grid"
	"github.com/rtm0/wrfxsect/internal/pipeline"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

// ArchiveExt is the extension of archive files.
const ArchiveExt = ".msgpack.zst"

// Archive is the serialized form of a run: the line, the vertical axis and
// every extracted frame.
type Archive struct {
	Source   string     `msgpack:"source"`
	Vertical string     `msgpack:"vertical"`
	Units    string     `msgpack:"units"`
	Start    [2]float64 `msgpack:"start"`
	End      [2]float64 `msgpack:"end"`
	Levels   []float64  `msgpack:"levels"`
	// Points are the (lat, lon) of every column.
	Points  [][2]float64   `msgpack:"points"`
	Terrain []float64      `msgpack:"terrain"`
	Frames  []ArchiveFrame `msgpack:"frames"`
}

// ArchiveFrame is one frame of an Archive. Absent slots are nil.
type ArchiveFrame struct {
	Time    time.Time `msgpack:"time"`
	Index   int       `msgpack:"index"`
	Name    string    `msgpack:"name"`
	Shade   *Section  `msgpack:"shade,omitempty"`
	Contour *Section  `msgpack:"contour,omitempty"`
	Along   *Section  `msgpack:"along,omitempty"`
	Upward  *Section  `msgpack:"upward,omitempty"`
}

// Section is a cross-section without its axes. Values are [level][column].
type Section struct {
	Name        string      `msgpack:"name"`
	Description string      `msgpack:"description"`
	Units       string      `msgpack:"units"`
	Values      [][]float64 `msgpack:"values"`
}

func section(cs *xsect.CrossSection) *Section {
	if cs == nil {
		return nil
	}
	return &Section{
		Name:        cs.Name,
		Description: cs.Description,
		Units:       cs.Units,
		Values:      cs.Values,
	}
}

// Meta describes the run a set of frames was extracted by.
type Meta struct {
	Source     string
	Start, End grid.GeoPoint
	Vertical   xsect.VerticalCoord
	Levels     []float64
	Points     []grid.GeoPoint
}

// MetaOf returns the Meta of frames extracted from source with plan.
func MetaOf(source string, plan *pipeline.Plan) Meta {
	return Meta{
		Source:   source,
		Start:    plan.Start,
		End:      plan.End,
		Vertical: plan.Vertical,
		Levels:   plan.Levels,
		Points:   plan.Line().Points,
	}
}

// NewArchive collects frames. Frame names use the display zone loc.
func NewArchive(meta Meta, frames []*pipeline.Frame, loc *time.Location) *Archive {
	a := &Archive{
		Source:   meta.Source,
		Vertical: meta.Vertical.String(),
		Units:    meta.Vertical.Units(),
		Start:    [2]float64{meta.Start.Lat, meta.Start.Lon},
		End:      [2]float64{meta.End.Lat, meta.End.Lon},
		Levels:   meta.Levels,
	}
	for _, p := range meta.Points {
		a.Points = append(a.Points, [2]float64{p.Lat, p.Lon})
	}
	for _, f := range frames {
		if a.Terrain == nil {
			a.Terrain = f.Terrain
		}
		a.Frames = append(a.Frames, ArchiveFrame{
			Time:    f.Time.UTC(),
			Index:   f.Index,
			Name:    FrameName(f.Time, loc),
			Shade:   section(f.Shade),
			Contour: section(f.Contour),
			Along:   section(f.Along),
			Upward:  section(f.Upward),
		})
	}
	return a
}

// WriteArchive writes a to path as zstd-compressed msgpack.
func WriteArchive(path string, a *Archive) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(a); err != nil {
		zw.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadArchive reads an archive written by WriteArchive.
func ReadArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var a Archive
	if err := msgpack.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &a, nil
}
