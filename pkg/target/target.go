package target

import (
	"time"

	"github.com/pkg/errors"
)

// ErrEmptyDump is returned by dump helpers when a task attempts to persist the
// empty sentinel while empty-dump rejection is enabled.
var ErrEmptyDump = errors.New("refusing to dump empty output")

// Target is the artifact store contract for a single output reference.
// Implementations must make Dump atomic (readers never observe a partial
// write) and Remove idempotent. LastModificationTime is undefined when the
// target does not exist.
type Target interface {
	Exists() (bool, error)
	Load() ([]byte, error)
	Dump(data []byte) error
	Remove() error
	Path() string
	LastModificationTime() (time.Time, error)
}
