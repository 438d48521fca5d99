package domain

import "errors"

var (
	// ErrOutOfBounds is returned when a coordinate falls outside the DEM.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrNoDEM is returned when no project DEM is configured.
	ErrNoDEM = errors.New("no DEM configured")
	// ErrNotFound is returned by repositories for missing records.
	ErrNotFound = errors.New("not found")
	// ErrAOITooLarge is returned when a synchronous analysis would clip more
	// cells than the configured cap allows.
	ErrAOITooLarge = errors.New("AOI too large")
)
