package scraper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
)

// PoolConfig bounds one attribution run.
type PoolConfig struct {
	PoolSize       int
	PerUnitTimeout time.Duration
	MaxRetries     int
	MaxRespawns    int
	Budget         time.Duration
}

// Supervisor drives a bounded pool of browser workers over a queue of photo
// units. Workers only classify and report; the supervisor is the single
// writer of the summary, so aggregation needs no locks.
type Supervisor struct {
	classifier Classifier
	cfg        PoolConfig
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewSupervisor(classifier Classifier, cfg PoolConfig, m *monitoring.Metrics, logger *zap.Logger) *Supervisor {
	return &Supervisor{classifier: classifier, cfg: cfg, metrics: m, logger: logger}
}

type unitResult struct {
	unit    domain.PhotoUnit
	verdict domain.UploaderVerdict
	err     error
}

// Run classifies every unit and returns the aggregated summary. It always
// returns within the configured budget: on expiry, in-flight units finalize
// as Unknown and whatever was never dispatched stays uncounted. Each unit
// contributes to the summary exactly once.
func (s *Supervisor) Run(ctx context.Context, businessTitle string, units []domain.PhotoUnit) domain.AttributionSummary {
	summary := domain.AttributionSummary{}
	if len(units) == 0 {
		return summary
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Budget)
	defer cancel()

	// Results are buffered for the worst case (every unit failing every
	// attempt) so a worker can always report and move on, even after the
	// supervisor has returned.
	dispatch := make(chan domain.PhotoUnit)
	results := make(chan unitResult, len(units)*(s.cfg.MaxRetries+1))
	exits := make(chan struct{}, s.cfg.PoolSize)

	for i := 0; i < s.cfg.PoolSize; i++ {
		go s.worker(runCtx, i, businessTitle, dispatch, results, exits)
	}

	pending := make([]domain.PhotoUnit, len(units))
	copy(pending, units)
	attempts := make(map[int]int, len(units))
	inFlight := make(map[int]struct{}, s.cfg.PoolSize)
	finalized := make(map[int]bool, len(units))
	remaining := len(units)
	alive := s.cfg.PoolSize

	finalize := func(idx int, v domain.UploaderVerdict) {
		if finalized[idx] {
			return
		}
		finalized[idx] = true
		summary.Add(v)
		remaining--
		s.metrics.IncPhotosClassified(string(v))
	}

	for remaining > 0 {
		if alive == 0 && len(pending) > 0 {
			// The pool is fully degraded. Nothing will ever pick these up.
			s.logger.Warn("no workers left, finalizing undispatched units as unknown",
				zap.Int("units", len(pending)))
			for _, u := range pending {
				finalize(u.Index, domain.VerdictUnknown)
			}
			pending = nil
			continue
		}

		var dch chan domain.PhotoUnit
		var next domain.PhotoUnit
		if len(pending) > 0 {
			dch = dispatch
			next = pending[0]
		}

		select {
		case dch <- next:
			pending = pending[1:]
			attempts[next.Index]++
			inFlight[next.Index] = struct{}{}

		case res := <-results:
			delete(inFlight, res.unit.Index)
			if finalized[res.unit.Index] {
				break
			}
			if res.err == nil {
				finalize(res.unit.Index, res.verdict)
				break
			}
			s.logger.Debug("classification attempt failed",
				zap.Int("index", res.unit.Index),
				zap.Int("attempt", attempts[res.unit.Index]),
				zap.Error(res.err))
			s.metrics.IncScrapeErrors(errType(res.err))
			if attempts[res.unit.Index] > s.cfg.MaxRetries {
				finalize(res.unit.Index, domain.VerdictUnknown)
			} else {
				pending = append(pending, res.unit)
			}

		case <-exits:
			alive--

		case <-runCtx.Done():
			// Budget spent. Count what was being worked on as Unknown and
			// hand back the partial summary; undispatched units are not
			// part of this run's tally.
			for idx := range inFlight {
				finalize(idx, domain.VerdictUnknown)
			}
			s.logger.Warn("attribution budget exhausted",
				zap.Int("analyzed", summary.TotalAnalyzed),
				zap.Int("abandoned", len(pending)))
			return summary
		}
	}

	return summary
}

// worker owns one classifier session at a time. Every unit it receives
// produces exactly one result message, then the worker either keeps serving,
// respawns its session, or leaves the pool.
func (s *Supervisor) worker(ctx context.Context, id int, businessTitle string, dispatch <-chan domain.PhotoUnit, results chan<- unitResult, exits chan<- struct{}) {
	defer func() { exits <- struct{}{} }()
	log := s.logger.With(zap.Int("worker", id))

	respawns := 0
	session, ok := s.openSession(ctx, log, businessTitle, &respawns)
	if !ok {
		return
	}
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case unit := <-dispatch:
			unitCtx, cancel := context.WithTimeout(ctx, s.cfg.PerUnitTimeout)
			verdict, err := session.Classify(unitCtx, unit)
			cancel()

			results <- unitResult{unit: unit, verdict: verdict, err: err}

			if err != nil && errors.Is(err, ErrSessionDead) {
				session.Close()
				session = nil
				if respawns >= s.cfg.MaxRespawns {
					log.Warn("browser died with no respawns left, leaving the pool")
					return
				}
				respawns++
				s.metrics.IncBrowserRespawns()
				log.Warn("respawning browser session", zap.Int("respawn", respawns))
				session, ok = s.openSession(ctx, log, businessTitle, &respawns)
				if !ok {
					return
				}
			}
		}
	}
}

// openSession starts a browser session, burning the respawn allowance on
// each failed attempt. The first launch is free; only recoveries count.
func (s *Supervisor) openSession(ctx context.Context, log *zap.Logger, businessTitle string, respawns *int) (Session, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}
		session, err := s.classifier.NewSession(ctx, businessTitle)
		if err == nil {
			return session, true
		}
		if *respawns >= s.cfg.MaxRespawns {
			log.Warn("browser session failed with no respawns left", zap.Error(err))
			return nil, false
		}
		*respawns++
		s.metrics.IncBrowserRespawns()
		log.Warn("respawning browser session",
			zap.Int("respawn", *respawns),
			zap.Error(err))
	}
}

func errType(err error) string {
	if errors.Is(err, ErrSessionDead) {
		return "session_dead"
	}
	return "unit_failed"
}
