package field

import (
	"fmt"
	"time"
)

// OutOfDomainError reports a sample request outside the field's spatial or
// temporal coverage. The engine never extrapolates past the edge of known
// forecast data; drifting out of coverage is an explicit stop condition.
type OutOfDomainError struct {
	Lon, Lat float64
	Time     time.Time
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("field: (%.4f, %.4f) at %s outside coverage", e.Lon, e.Lat, e.Time.Format(time.RFC3339))
}

// MissingDataError reports that every grid cell surrounding a query point is
// masked out. With gap-fill disabled the error propagates; with gap-fill
// enabled the sampler falls back to the nearest valid node instead.
type MissingDataError struct {
	Lon, Lat float64
	Time     time.Time
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("field: no valid data around (%.4f, %.4f) at %s", e.Lon, e.Lat, e.Time.Format(time.RFC3339))
}
