package ports

import (
	"io"
	"time"
)

// ResultStore creates named files for exported runs
type ResultStore interface {
	Create(now time.Time) (name string, w io.WriteCloser, err error)
}
