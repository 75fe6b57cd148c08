package pathgen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateBased generates paths of the form YYYY/MM/DD/<uuid>.<ext>,
// e.g. "2024/06/15/a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d.png".
type DateBased struct {
	now Clock
}

// DateBasedOption configures a DateBased generator
type DateBasedOption func(*DateBased)

// WithClock overrides the time source
func WithClock(now Clock) DateBasedOption {
	return func(g *DateBased) {
		g.now = now
	}
}

// NewDateBased creates a date-partitioned path generator using local time
func NewDateBased(opts ...DateBasedOption) *DateBased {
	g := &DateBased{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new unique path for filename
func (g *DateBased) Generate(filename string) string {
	date := g.now()
	dir := fmt.Sprintf("%04d/%02d/%02d", date.Year(), int(date.Month()), date.Day())
	return dir + "/" + withExtension(uuid.NewString(), extension(filename))
}
