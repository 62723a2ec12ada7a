// Package xsect extracts vertical cross-sections from gridded model fields:
// the target vertical levels, the resampling of a field onto a line and a set
// of levels, the along-line projection of horizontal vectors and the terrain
// profile underneath the line.
package xsect

import "errors"

var (
	// ErrInvalidLine is returned when the start and end points coincide.
	ErrInvalidLine = errors.New("invalid cross-section line: start equals end")
	// ErrInvalidLineDirection is returned when a vector is projected on a
	// line that runs from east to west.
	ErrInvalidLineDirection = errors.New("invalid cross-section line direction: set the start point west of the end point")
	// ErrMissingCoordinates is returned for a line end without a valid
	// latitude or longitude.
	ErrMissingCoordinates = errors.New("start and end points must have latitude and longitude")
	// ErrInvalidVerticalCoordinateKind is returned for a vertical coordinate
	// other than pressure or height.
	ErrInvalidVerticalCoordinateKind = errors.New("invalid vertical coordinate kind")
	// ErrEmptyLevels is returned when no vertical levels are requested.
	ErrEmptyLevels = errors.New("empty vertical levels")
	// ErrNonMonotonicLevels is returned for levels that do not run in the
	// direction of their vertical coordinate.
	ErrNonMonotonicLevels = errors.New("vertical levels are not monotonic")
	// ErrInvalidLevelStep is returned for a zero, negative or non-finite
	// level interval.
	ErrInvalidLevelStep = errors.New("invalid vertical level interval")
)
