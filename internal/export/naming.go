// Package export writes extracted cross-sections out: a NetCDF file, a
// compressed msgpack archive and the per-frame names and titles they are
// labelled with.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rtm0/wrfxsect/internal/grid"
)

const frameLayout = "20060102_1504"

// Zone returns a fixed display time zone called name, offsetHours east of
// UTC. An empty name falls back to UTC.
func Zone(name string, offsetHours float64) *time.Location {
	if name == "" {
		return time.UTC
	}
	return time.FixedZone(name, int(offsetHours*3600))
}

// FrameName is the zero-padded local time of a frame followed by the zone
// name, e.g. 20230821_0900JST.
func FrameName(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	name, _ := t.Zone()
	return t.Format(frameLayout) + name
}

// SectionLocation describes the line from start to end for titles.
func SectionLocation(start, end grid.GeoPoint) string {
	deg := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case start.Lat == end.Lat:
		return fmt.Sprintf("%s-%s°E at %s°N", deg(start.Lon), deg(end.Lon), deg(start.Lat))
	case start.Lon == end.Lon:
		return fmt.Sprintf("%s-%s°N at %s°E", deg(start.Lat), deg(end.Lat), deg(start.Lon))
	default:
		return fmt.Sprintf("%s-%s°N, %s-%s°E", deg(start.Lat), deg(end.Lat), deg(start.Lon), deg(end.Lon))
	}
}

// Title is the caption of the frame at t.
func Title(t time.Time, loc *time.Location, start, end grid.GeoPoint) string {
	t = t.In(loc)
	name, _ := t.Zone()
	return fmt.Sprintf("%s %s%s   %s  vertical cross section", t.Format("2006/01/02"), t.Format("1504"), name, SectionLocation(start, end))
}
