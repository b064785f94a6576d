package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomsync/internal/events"
	"github.com/mmynk/roomsync/internal/lock"
	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/service"
	"github.com/mmynk/roomsync/internal/storage"
	"github.com/mmynk/roomsync/internal/storage/memory"
	"github.com/mmynk/roomsync/internal/storage/sqlite"
)

func date(s string) time.Time {
	d, err := time.Parse(service.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) recurring(t *testing.T, cadence models.Cadence, nextDue string) string {
	t.Helper()
	req := &service.CreateRecurringExpenseRequest{
		CreateExpenseRequest: service.CreateExpenseRequest{
			Description: "Rent",
			Amount:      amount("900"),
			GroupID:     f.groupID,
		},
		RecurrenceType: cadence,
		NextDueDate:    nextDue,
	}
	resp, err := f.svc.CreateRecurringExpense(as("alice"), req)
	require.NoError(t, err)
	return resp.ExpenseID
}

func TestCreateRecurringExpense(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.CreateRecurringExpense(as("alice"), &service.CreateRecurringExpenseRequest{
		CreateExpenseRequest: service.CreateExpenseRequest{Description: "Rent", Amount: amount("900"), GroupID: f.groupID},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", resp.NextDueDate)

	expense, err := f.store.GetExpense(context.Background(), resp.ExpenseID)
	require.NoError(t, err)
	assert.True(t, expense.Recurring)
	assert.Equal(t, models.CadenceMonthly, expense.Cadence)
	require.NotNil(t, expense.NextDueDate)
	assert.Equal(t, date("2025-02-01"), *expense.NextDueDate)
	assert.Len(t, expense.Splits, 3)
}

func TestCreateRecurringExpense_Rejected(t *testing.T) {
	f := newFixture(t)
	base := service.CreateExpenseRequest{Description: "Rent", Amount: amount("900"), GroupID: f.groupID}

	_, err := f.svc.CreateRecurringExpense(as("alice"), &service.CreateRecurringExpenseRequest{
		CreateExpenseRequest: base, RecurrenceType: "daily",
	})
	assert.ErrorIs(t, err, service.ErrBadCadence)

	_, err = f.svc.CreateRecurringExpense(as("alice"), &service.CreateRecurringExpenseRequest{
		CreateExpenseRequest: base, NextDueDate: "15/01/2025",
	})
	assert.ErrorIs(t, err, service.ErrBadDate)
}

func TestGenerateDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	templateID := f.recurring(t, models.CadenceMonthly, "2025-01-15")
	engine := service.NewRecurrenceEngine(f.store,
		service.WithPublisher(f.publisher),
		service.WithClock(func() time.Time { return testNow }),
	)

	ids, err := engine.GenerateDue(ctx, time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	clone, err := f.store.GetExpense(ctx, ids[0])
	require.NoError(t, err)
	template, err := f.store.GetExpense(ctx, templateID)
	require.NoError(t, err)

	assert.NotEqual(t, templateID, clone.ID)
	assert.Equal(t, template.Description, clone.Description)
	assert.True(t, template.Amount.Equal(clone.Amount))
	assert.Equal(t, template.PayerID, clone.PayerID)
	assert.Equal(t, testNow.Unix(), clone.CreatedAt)
	assert.True(t, clone.Recurring)
	assert.Equal(t, date("2025-02-15"), *clone.NextDueDate)
	assert.Equal(t, date("2025-02-15"), *template.NextDueDate)

	require.Len(t, clone.Splits, len(template.Splits))
	for i := range template.Splits {
		assert.Equal(t, template.Splits[i].UserID, clone.Splits[i].UserID)
		assert.True(t, template.Splits[i].Amount.Equal(clone.Splits[i].Amount))
		assert.Equal(t, clone.ID, clone.Splits[i].ExpenseID)
		assert.NotEqual(t, template.Splits[i].ID, clone.Splits[i].ID)
	}

	published := f.publisher.Events()
	require.NotEmpty(t, published)
	last := published[len(published)-1]
	assert.Equal(t, events.RecurrenceGenerated, last.Type)
	assert.Equal(t, f.groupID, last.GroupID)

	// Nothing is due again until the 15th.
	ids, err = engine.GenerateDue(ctx, time.Date(2025, 2, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestGenerateDue_ClonesKeepRecurring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.recurring(t, models.CadenceMonthly, "2025-01-15")
	engine := service.NewRecurrenceEngine(f.store)

	ids, err := engine.GenerateDue(ctx, date("2025-01-20"))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	// The template and its first clone are both due on Feb 15.
	ids, err = engine.GenerateDue(ctx, date("2025-02-15"))
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	expenses, err := f.store.ListExpensesByGroup(ctx, f.groupID)
	require.NoError(t, err)
	assert.Len(t, expenses, 4)
}

func TestGenerateDue_CatchesUp(t *testing.T) {
	stores := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store { return memory.New() },
		"sqlite": func(t *testing.T) storage.Store {
			store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			f := newFixtureOn(t, open(t))
			ctx := context.Background()
			templateID := f.recurring(t, models.CadenceMonthly, "2025-01-15")
			engine := service.NewRecurrenceEngine(f.store)
			asOf := date("2025-03-20")

			// Three periods behind: Jan 15, Feb 15 and Mar 15. Clones chain, so
			// the due set doubles each period: 1 + 2 + 4.
			first, err := engine.GenerateDue(ctx, asOf)
			require.NoError(t, err)
			assert.Len(t, first, 7)

			second, err := engine.GenerateDue(ctx, asOf)
			require.NoError(t, err)
			assert.Empty(t, second)

			template, err := f.store.GetExpense(ctx, templateID)
			require.NoError(t, err)
			assert.Equal(t, date("2025-04-15"), *template.NextDueDate)

			expenses, err := f.store.ListExpensesByGroup(ctx, f.groupID)
			require.NoError(t, err)
			require.Len(t, expenses, 8)
			for _, e := range expenses {
				require.NotNil(t, e.NextDueDate)
				assert.True(t, e.NextDueDate.After(asOf), "expense %s still due on %s", e.ID, e.NextDueDate.Format(service.DateLayout))
			}
		})
	}
}

func TestGenerateDue_CloneLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.recurring(t, models.CadenceWeekly, "2024-01-01")
	engine := service.NewRecurrenceEngine(f.store)

	_, err := engine.GenerateDue(ctx, date("2025-01-10"))
	assert.ErrorIs(t, err, service.ErrTooManyClones)

	expenses, err := f.store.ListExpensesByGroup(ctx, f.groupID)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

func TestGenerateDue_MonthEndClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	templateID := f.recurring(t, models.CadenceMonthly, "2025-01-31")
	engine := service.NewRecurrenceEngine(f.store)

	_, err := engine.GenerateDue(ctx, date("2025-01-31"))
	require.NoError(t, err)

	template, err := f.store.GetExpense(ctx, templateID)
	require.NoError(t, err)
	assert.Equal(t, date("2025-02-28"), *template.NextDueDate)
}

func TestGenerateDue_LockHeld(t *testing.T) {
	f := newFixture(t)
	f.recurring(t, models.CadenceMonthly, "2025-01-15")

	locker := lock.NewLocal()
	engine := service.NewRecurrenceEngine(f.store, service.WithLocker(locker))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- locker.WithLock(context.Background(), service.RecurrenceLockKey, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := engine.GenerateDue(ctx, date("2025-02-01"))
	assert.ErrorIs(t, err, lock.ErrLocked)

	close(release)
	require.NoError(t, <-done)

	expenses, err := f.store.ListExpensesByGroup(context.Background(), f.groupID)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

func TestGenerateRecurring(t *testing.T) {
	clock := testNow
	f := newFixture(t, service.WithClock(func() time.Time { return clock }))
	f.recurring(t, models.CadenceMonthly, "")

	_, err := f.svc.GenerateRecurring(context.Background())
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	resp, err := f.svc.GenerateRecurring(as("bob"))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Generated)

	clock = time.Date(2025, 2, 1, 6, 0, 0, 0, time.UTC)
	resp, err = f.svc.GenerateRecurring(as("bob"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	assert.Len(t, resp.ExpenseIDs, 1)
}

func TestRecurrenceEngineRun(t *testing.T) {
	f := newFixture(t)
	f.recurring(t, models.CadenceMonthly, "2025-01-05")
	engine := service.NewRecurrenceEngine(f.store, service.WithClock(func() time.Time { return testNow }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		expenses, err := f.store.ListExpensesByGroup(context.Background(), f.groupID)
		return err == nil && len(expenses) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
