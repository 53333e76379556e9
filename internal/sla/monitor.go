package sla

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/debtflow/platform/internal/calendar"
	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/robfig/cron/v3"
)

// DeadlineStore is the persistence the monitor needs
type DeadlineStore interface {
	ListPending(ctx context.Context) ([]Deadline, error)
	MarkBreached(ctx context.Context, id types.ID) (bool, error)
	Schedule(ctx context.Context, caseID types.ID, obligation casedomain.Obligation, from time.Time, synthesized bool) error
}

// Emitter receives classified deadlines that need attention. Breaches
// arrive exactly once each; at-risk deadlines arrive every pass until
// they breach or are met, and the emitter owns de-duplication.
type Emitter interface {
	EmitBreach(ctx context.Context, d ClassifiedDeadline) error
	EmitAtRisk(ctx context.Context, d ClassifiedDeadline) error
}

// Monitor runs the periodic breach scan
type Monitor struct {
	store   DeadlineStore
	cases   casedomain.Repository
	cal     calendar.Calendar
	cfg     config.SLAConfig
	emitter Emitter

	cron *cron.Cron
}

// NewMonitor creates a breach scan monitor
func NewMonitor(store DeadlineStore, cases casedomain.Repository, cal calendar.Calendar, cfg config.SLAConfig, emitter Emitter) *Monitor {
	return &Monitor{store: store, cases: cases, cal: cal, cfg: cfg, emitter: emitter}
}

// Start schedules the scan on the configured cron expression
func (m *Monitor) Start() error {
	m.cron = cron.New()
	_, err := m.cron.AddFunc(m.cfg.ScanSchedule, func() {
		if _, err := m.Scan(context.Background()); err != nil {
			log.Printf("ERROR: breach scan failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	m.cron.Start()
	log.Printf("SLA breach scan scheduled: %s", m.cfg.ScanSchedule)
	return nil
}

// Stop halts the scan schedule, waiting for a running pass to finish
func (m *Monitor) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// Scan runs one full pass: backfill missing deadlines, classify every
// pending one, flip newly breached ones and push breached and at-risk
// deadlines to the emitter, most urgent first. A failure on one
// deadline never aborts the pass.
func (m *Monitor) Scan(ctx context.Context) (*ScanReport, error) {
	started := time.Now()
	report := &ScanReport{StartedAt: started}

	m.backfill(ctx)

	pending, err := m.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range pending {
		remaining := m.cal.Remaining(started, d.DueAt, d.BusinessHours)
		cd := ClassifiedDeadline{
			Deadline:       d,
			RemainingHours: remaining,
			Classification: Classify(remaining, m.cfg.WarningThresholdHours),
		}

		switch cd.Classification {
		case Breached:
			report.Breached = append(report.Breached, cd)
		case AtRisk:
			report.AtRisk = append(report.AtRisk, cd)
		default:
			report.OnTrack = append(report.OnTrack, cd)
		}
	}

	// Most urgent first in every bucket.
	for _, bucket := range [][]ClassifiedDeadline{report.Breached, report.AtRisk, report.OnTrack} {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].RemainingHours < bucket[j].RemainingHours
		})
	}

	for _, cd := range report.Breached {
		m.handleBreach(ctx, cd)
	}
	for _, cd := range report.AtRisk {
		m.handleAtRisk(ctx, cd)
	}

	report.Duration = time.Since(started)
	metrics.RecordScanPass(report.Duration, len(report.Breached), len(report.AtRisk), len(report.OnTrack))
	return report, nil
}

// handleBreach flips the deadline and, only when this pass won the
// flip, emits the escalation. Losing the flip means another pass (or a
// concurrent met-marking) already owns the outcome.
func (m *Monitor) handleBreach(ctx context.Context, cd ClassifiedDeadline) {
	flipped, err := m.store.MarkBreached(ctx, cd.Deadline.ID)
	if err != nil {
		log.Printf("ERROR: failed to mark deadline %s breached: %v", cd.Deadline.ID, err)
		return
	}
	if !flipped {
		return
	}

	metrics.RecordDeadlineBreached(string(cd.Deadline.Obligation))
	if m.emitter == nil {
		return
	}
	if err := m.emitter.EmitBreach(ctx, cd); err != nil {
		log.Printf("ERROR: failed to emit breach for case %s: %v", cd.Deadline.CaseID, err)
	}
}

// handleAtRisk pushes a warning to the emitter. The deadline keeps its
// pending status, so repeat suppression is the emitter's job.
func (m *Monitor) handleAtRisk(ctx context.Context, cd ClassifiedDeadline) {
	if m.emitter == nil {
		return
	}
	if err := m.emitter.EmitAtRisk(ctx, cd); err != nil {
		log.Printf("ERROR: failed to emit at-risk warning for case %s: %v", cd.Deadline.CaseID, err)
	}
}

// backfill writes a synthesized resolution deadline for open cases
// without a pending one. The deadline persists on first synthesis so
// later passes measure against the same due time.
func (m *Monitor) backfill(ctx context.Context) {
	missing, err := m.cases.ListOpenWithoutDeadline(ctx)
	if err != nil {
		log.Printf("ERROR: failed to list cases without deadlines: %v", err)
		return
	}
	for _, c := range missing {
		if err := m.store.Schedule(ctx, c.ID, casedomain.ObligationResolution, c.CreatedAt, true); err != nil {
			log.Printf("ERROR: failed to backfill deadline for case %s: %v", c.ID, err)
		}
	}
}
