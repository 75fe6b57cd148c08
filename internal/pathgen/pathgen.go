// Package pathgen provides storage path strategies for uploaded images.
package pathgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/mansoorceksport/imgpaste/internal/domain"
)

// Clock returns the current time
type Clock func() time.Time

// extension returns the lowercased text after the last dot of filename,
// or "" when there is none.
func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func withExtension(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// Strategy names accepted by New
const (
	StrategyDate = "date"
	StrategyFlat = "flat"
)

// New returns the generator registered under strategy
func New(strategy, prefix string) (domain.PathGenerator, error) {
	switch strategy {
	case StrategyDate, "":
		return NewDateBased(), nil
	case StrategyFlat:
		return NewFlat(prefix, nil), nil
	default:
		return nil, fmt.Errorf("unknown path strategy %q", strategy)
	}
}
