package pathgen

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Flat generates "<prefix>/<ulid>.<ext>" paths. ULIDs sort by creation time,
// so a bucket listing comes back in upload order without date folders.
type Flat struct {
	prefix string
	now    Clock
}

// NewFlat creates a flat ULID generator. An empty prefix puts objects at the bucket root.
func NewFlat(prefix string, now Clock) *Flat {
	if now == nil {
		now = time.Now
	}
	return &Flat{
		prefix: strings.Trim(prefix, "/"),
		now:    now,
	}
}

// Generate returns a new unique path for filename
func (g *Flat) Generate(filename string) string {
	id := ulid.MustNew(ulid.Timestamp(g.now()), rand.Reader)
	name := withExtension(strings.ToLower(id.String()), extension(filename))
	if g.prefix == "" {
		return name
	}
	return g.prefix + "/" + name
}
