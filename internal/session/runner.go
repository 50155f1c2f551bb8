package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/wardrive/apmapper/internal/aggregate"
	"github.com/wardrive/apmapper/internal/capture"
	"github.com/wardrive/apmapper/internal/gpslog"
	"github.com/wardrive/apmapper/internal/timeline"
	"github.com/wardrive/apmapper/pkg/worker"
)

// Stats summarizes one session's parse outcome.
type Stats struct {
	Capture      capture.Stats
	Fixes        gpslog.Stats
	Observations int
	Failed       bool
}

// Runner parses session pairs on a worker pool. Each worker builds a private
// partial working set; the merge is associative and commutative, so folding
// the partial sets once at the end under a single goroutine reproduces the
// sequential result without any fine-grained locking. One session's failure
// degrades only that session's contribution.
type Runner struct {
	workers   int
	tolerance time.Duration
	aggOpts   aggregate.Options
	logger    zerolog.Logger
	stats     cmap.ConcurrentMap[string, Stats]
}

// NewRunner configures a runner. workers <= 0 means a single worker.
func NewRunner(workers int, tolerance time.Duration, aggOpts aggregate.Options, logger zerolog.Logger) *Runner {
	return &Runner{
		workers:   workers,
		tolerance: tolerance,
		aggOpts:   aggOpts,
		logger:    logger,
		stats:     cmap.New[Stats](),
	}
}

// Run processes every session and folds the results into one working set.
// The returned set is not yet frozen.
func (r *Runner) Run(sessions []Session) *aggregate.WorkingSet {
	results := make(chan *aggregate.WorkingSet, len(sessions))

	pool := worker.NewPool(r.workers)
	for _, s := range sessions {
		s := s
		pool.Submit(func() {
			partial, err := r.processSession(s)
			if err != nil {
				r.logger.Warn().Err(err).Str("session", s.Name).Msg("session failed, contributing nothing")
				r.stats.Set(s.Name, Stats{Failed: true})
				return
			}
			results <- partial
		})
	}
	pool.Shutdown()
	close(results)

	total := aggregate.NewWorkingSet(r.aggOpts)
	for partial := range results {
		total.Merge(partial)
	}
	return total
}

// Stats returns the per-session parse statistics collected during Run.
func (r *Runner) Stats() map[string]Stats {
	return r.stats.Items()
}

func (r *Runner) processSession(s Session) (*aggregate.WorkingSet, error) {
	logger := r.logger.With().Str("session", s.Name).Logger()

	capFile, err := os.Open(s.Capture)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer capFile.Close()

	reader, err := capture.NewReader(capFile, logger)
	if err != nil {
		return nil, err
	}
	observations, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	fixFile, err := os.Open(s.FixLog)
	if err != nil {
		return nil, fmt.Errorf("open track log: %w", err)
	}
	defer fixFile.Close()

	fixes, fixStats, err := gpslog.Parse(fixFile, logger)
	if err != nil {
		if errors.Is(err, gpslog.ErrNoFixes) {
			return nil, fmt.Errorf("track log %s: %w", s.FixLog, err)
		}
		return nil, err
	}

	geolocated := timeline.Resolve(observations, fixes, r.tolerance)

	partial := aggregate.NewWorkingSet(r.aggOpts)
	partial.AddAll(geolocated)

	r.stats.Set(s.Name, Stats{
		Capture:      reader.Stats(),
		Fixes:        fixStats,
		Observations: len(geolocated),
	})
	logger.Debug().
		Int("observations", len(geolocated)).
		Int("fixes", len(fixes)).
		Int("access_points", partial.Len()).
		Msg("session parsed")
	return partial, nil
}
