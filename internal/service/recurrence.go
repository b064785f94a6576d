package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/roomsync/internal/calculator"
	"github.com/mmynk/roomsync/internal/events"
	"github.com/mmynk/roomsync/internal/lock"
	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

// RecurrenceLockKey is held for the whole of every recurrence pass, so at most
// one pass runs per deployment.
const RecurrenceLockKey = "lock:recurrence:generate"

// MaxClonesPerPass bounds the work of one recurrence pass. Clones chain, so a
// schedule that is n periods behind needs 2^n-1 clones to catch up.
const MaxClonesPerPass = 1000

// ErrTooManyClones is returned when catching up would exceed MaxClonesPerPass.
var ErrTooManyClones = errors.New("recurrence pass exceeds clone limit")

// RecurrenceEngine clones due recurring expenses forward.
type RecurrenceEngine struct {
	options
	store storage.Store
}

// NewRecurrenceEngine creates an engine over store. Pass WithLocker with a
// shared lock when more than one process may run passes.
func NewRecurrenceEngine(store storage.Store, opts ...Option) *RecurrenceEngine {
	return &RecurrenceEngine{options: newOptions(opts), store: store}
}

// GenerateDue clones every recurring expense whose next due date is on or
// before asOf and returns the IDs of the clones.
//
// Each clone copies the description, amount, group, payer and every split of
// its template verbatim, is stamped with the current time, and stays recurring
// with next due = old due + one cadence step. The template's own next due date
// advances by the same step. The date moves from the old due date, not from
// now, so a late pass does not shift the schedule.
//
// Selection repeats inside the transaction until nothing is due, so every
// recurring expense ends the pass with next due after asOf and a second pass
// with the same asOf generates nothing. Clones created in the pass are
// selected again while they are still due. A pass that would exceed
// MaxClonesPerPass fails without committing anything.
func (r *RecurrenceEngine) GenerateDue(ctx context.Context, asOf time.Time) ([]string, error) {
	start := time.Now()
	asOf = calculator.DateOnly(asOf)

	var clones []*models.Expense
	err := r.locker.WithLock(ctx, RecurrenceLockKey, func(ctx context.Context) error {
		return r.store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			clones = clones[:0]
			createdAt := r.now().Unix()

			for {
				due, err := tx.ListDueRecurring(ctx, asOf)
				if err != nil {
					return err
				}
				if len(due) == 0 {
					return nil
				}
				if len(clones)+len(due) > MaxClonesPerPass {
					return fmt.Errorf("%w: %d due after %d generated", ErrTooManyClones, len(due), len(clones))
				}

				for _, template := range due {
					clone := cloneForward(template, createdAt)
					if err := tx.InsertExpense(ctx, clone); err != nil {
						return err
					}
					if err := tx.AdvanceNextDue(ctx, template.ID, *clone.NextDueDate); err != nil {
						return err
					}
					clones = append(clones, clone)
				}
			}
		})
	})
	r.metrics.ObserveOperation("generate_recurring", err)
	if err != nil {
		slog.Error("Recurrence pass failed", "as_of", asOf.Format(DateLayout), "error", err)
		return nil, fmt.Errorf("recurrence pass: %w", err)
	}
	r.metrics.ObserveRecurrence(len(clones), time.Since(start))

	ids := make([]string, 0, len(clones))
	byGroup := make(map[string][]string)
	var groups []string
	for _, c := range clones {
		ids = append(ids, c.ID)
		if _, ok := byGroup[c.GroupID]; !ok {
			groups = append(groups, c.GroupID)
		}
		byGroup[c.GroupID] = append(byGroup[c.GroupID], c.ID)
	}

	slog.Info("Recurrence pass complete",
		"as_of", asOf.Format(DateLayout),
		"generated", len(ids),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	for _, groupID := range groups {
		r.publish(ctx, events.RecurrenceGenerated, groupID, "", map[string]any{
			"as_of":       asOf.Format(DateLayout),
			"expense_ids": byGroup[groupID],
		})
	}

	return ids, nil
}

// cloneForward builds the next occurrence of a recurring expense.
func cloneForward(template *models.Expense, createdAt int64) *models.Expense {
	next := calculator.NextDue(*template.NextDueDate, template.Cadence)

	splits := make([]models.Split, len(template.Splits))
	for i, s := range template.Splits {
		splits[i] = models.Split{UserID: s.UserID, Amount: s.Amount}
	}

	return &models.Expense{
		Description: template.Description,
		Amount:      template.Amount,
		GroupID:     template.GroupID,
		PayerID:     template.PayerID,
		CreatedAt:   createdAt,
		Recurring:   true,
		Cadence:     template.Cadence,
		NextDueDate: &next,
		Splits:      splits,
	}
}

// Run performs a pass immediately and then every interval until ctx is done.
// Failed passes are logged and retried on the next tick.
func (r *RecurrenceEngine) Run(ctx context.Context, interval time.Duration) {
	slog.Info("Recurrence scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Recurrence scheduler stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *RecurrenceEngine) runOnce(ctx context.Context) {
	_, err := r.GenerateDue(ctx, r.now())
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrLocked):
		slog.Info("Recurrence pass skipped, another worker holds the lock")
	case ctx.Err() != nil:
	default:
		slog.Error("Periodic recurrence pass failed", "error", err)
	}
}
