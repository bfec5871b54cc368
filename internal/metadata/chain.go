package metadata

import (
	"context"
	"errors"
	"fmt"

	"fmasearch/internal/logger"
	"fmasearch/internal/trackid"
)

// Chain tries multiple lookups in order, returning the record from the first
// one that succeeds.
type Chain struct {
	lookups []Lookup
	logger  *logger.Logger
}

// NewChain creates a Chain that queries lookups in order. Nil entries are
// skipped.
func NewChain(lookups []Lookup, log *logger.Logger) *Chain {
	var kept []Lookup
	for _, l := range lookups {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &Chain{lookups: kept, logger: log}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Track(ctx context.Context, id trackid.ID) (Record, error) {
	if len(c.lookups) == 0 {
		return Record{}, ErrNoLookup
	}

	var errs []error
	for _, l := range c.lookups {
		rec, err := l.Track(ctx, id)
		if err != nil {
			c.logger.Debug("lookup %s failed for %s: %v", l.Name(), id, err)
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
			continue
		}
		if rec.Source == "" {
			rec.Source = l.Name()
		}
		return rec, nil
	}
	return Record{}, errors.Join(errs...)
}
