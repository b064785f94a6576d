package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedGroup creates users and a group containing them, in order.
func seedGroup(t *testing.T, store *SQLiteStore, names ...string) (*models.Group, []*models.User) {
	t.Helper()
	ctx := context.Background()

	var users []*models.User
	var ids []string
	for _, name := range names {
		u := models.NewUser(name+"@example.com", name, "hash")
		require.NoError(t, store.CreateUser(ctx, u))
		users = append(users, u)
		ids = append(ids, u.ID)
	}

	group := &models.Group{Name: "Flat", InviteCode: "INV-" + names[0], Members: ids}
	require.NoError(t, store.CreateGroup(ctx, group))
	return group, users
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group, users := seedGroup(t, store, "alice", "bob")

	t.Run("CreateExpense generates IDs and keeps exact amounts", func(t *testing.T) {
		expense := &models.Expense{
			Description: "Groceries",
			Amount:      dec("10.00"),
			GroupID:     group.ID,
			PayerID:     users[0].ID,
			Splits: []models.Split{
				{UserID: users[0].ID, Amount: dec("3.333")},
				{UserID: users[1].ID, Amount: dec("6.667")},
			},
		}
		require.NoError(t, store.CreateExpense(ctx, expense))

		assert.NotEmpty(t, expense.ID)
		assert.NotZero(t, expense.CreatedAt)
		for _, s := range expense.Splits {
			assert.NotEmpty(t, s.ID)
			assert.Equal(t, expense.ID, s.ExpenseID)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "Groceries", got.Description)
		assert.True(t, dec("10").Equal(got.Amount))
		assert.False(t, got.Recurring)
		assert.Nil(t, got.NextDueDate)
		require.Len(t, got.Splits, 2)
		assert.Equal(t, users[0].ID, got.Splits[0].UserID)
		assert.True(t, dec("3.333").Equal(got.Splits[0].Amount))
	})

	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("failed split insert leaves no expense behind", func(t *testing.T) {
		before, err := store.ListExpensesByGroup(ctx, group.ID)
		require.NoError(t, err)

		expense := &models.Expense{
			Description: "Broken",
			Amount:      dec("5"),
			GroupID:     group.ID,
			PayerID:     users[0].ID,
			Splits: []models.Split{
				{ID: "dup", UserID: users[0].ID, Amount: dec("2.5")},
				{ID: "dup", UserID: users[1].ID, Amount: dec("2.5")},
			},
		}
		require.Error(t, store.CreateExpense(ctx, expense))

		after, err := store.ListExpensesByGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("ListExpensesByGroup is newest first with splits", func(t *testing.T) {
		other, otherUsers := seedGroup(t, store, "carol")
		for i, desc := range []string{"old", "new"} {
			require.NoError(t, store.CreateExpense(ctx, &models.Expense{
				Description: desc,
				Amount:      dec("1"),
				GroupID:     other.ID,
				PayerID:     otherUsers[0].ID,
				CreatedAt:   int64(1000 + i),
				Splits:      []models.Split{{UserID: otherUsers[0].ID, Amount: dec("1")}},
			}))
		}

		expenses, err := store.ListExpensesByGroup(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "new", expenses[0].Description)
		assert.Equal(t, "old", expenses[1].Description)
		for _, e := range expenses {
			assert.Len(t, e.Splits, 1)
		}
	})
}

func TestPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group, users := seedGroup(t, store, "alice", "bob")

	expense := &models.Expense{
		Description: "Rent",
		Amount:      dec("100"),
		GroupID:     group.ID,
		PayerID:     users[0].ID,
		Splits:      []models.Split{{UserID: users[1].ID, Amount: dec("100")}},
	}
	require.NoError(t, store.CreateExpense(ctx, expense))

	linked := &models.Payment{ExpenseID: expense.ID, GroupID: group.ID, FromUserID: users[1].ID, ToUserID: users[0].ID, Amount: dec("20.50"), CreatedAt: 10}
	loose := &models.Payment{GroupID: group.ID, FromUserID: users[1].ID, ToUserID: users[0].ID, Amount: dec("5"), CreatedAt: 20}
	require.NoError(t, store.CreatePayment(ctx, linked))
	require.NoError(t, store.CreatePayment(ctx, loose))
	assert.NotEmpty(t, linked.ID)

	payments, err := store.ListPaymentsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, loose.ID, payments[0].ID)
	assert.Empty(t, payments[0].ExpenseID)
	assert.Equal(t, expense.ID, payments[1].ExpenseID)
	assert.True(t, dec("20.50").Equal(payments[1].Amount))
}

func TestRecurringTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group, users := seedGroup(t, store, "alice", "bob")

	due := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{due, later} {
		d := d
		require.NoError(t, store.CreateExpense(ctx, &models.Expense{
			Description: "Internet",
			Amount:      dec("60"),
			GroupID:     group.ID,
			PayerID:     users[0].ID,
			Recurring:   true,
			Cadence:     models.CadenceMonthly,
			NextDueDate: &d,
			Splits: []models.Split{
				{UserID: users[0].ID, Amount: dec("30")},
				{UserID: users[1].ID, Amount: dec("30")},
			},
		}))
	}

	asOf := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ListDueRecurring selects due rows with splits", func(t *testing.T) {
		err := store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			expenses, err := tx.ListDueRecurring(ctx, asOf)
			require.NoError(t, err)
			require.Len(t, expenses, 1)
			assert.Equal(t, due, *expenses[0].NextDueDate)
			assert.Equal(t, models.CadenceMonthly, expenses[0].Cadence)
			assert.True(t, expenses[0].Recurring)
			assert.Len(t, expenses[0].Splits, 2)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("error rolls back every write", func(t *testing.T) {
		var dueID string
		err := store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			expenses, err := tx.ListDueRecurring(ctx, asOf)
			require.NoError(t, err)
			dueID = expenses[0].ID
			require.NoError(t, tx.AdvanceNextDue(ctx, dueID, asOf.AddDate(1, 0, 0)))
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := store.GetExpense(ctx, dueID)
		require.NoError(t, err)
		assert.Equal(t, due, *got.NextDueDate)
	})

	t.Run("commit keeps inserted clone and advanced date", func(t *testing.T) {
		next := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
		var cloneID, dueID string
		err := store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			expenses, err := tx.ListDueRecurring(ctx, asOf)
			if err != nil {
				return err
			}
			src := expenses[0]
			dueID = src.ID
			clone := &models.Expense{
				Description: src.Description,
				Amount:      src.Amount,
				GroupID:     src.GroupID,
				PayerID:     src.PayerID,
				Recurring:   true,
				Cadence:     src.Cadence,
				NextDueDate: &next,
				Splits:      []models.Split{{UserID: users[1].ID, Amount: dec("60")}},
			}
			if err := tx.InsertExpense(ctx, clone); err != nil {
				return err
			}
			cloneID = clone.ID
			return tx.AdvanceNextDue(ctx, src.ID, next)
		})
		require.NoError(t, err)

		clone, err := store.GetExpense(ctx, cloneID)
		require.NoError(t, err)
		assert.Equal(t, next, *clone.NextDueDate)
		assert.Len(t, clone.Splits, 1)

		template, err := store.GetExpense(ctx, dueID)
		require.NoError(t, err)
		assert.Equal(t, next, *template.NextDueDate)

		require.NoError(t, store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			expenses, err := tx.ListDueRecurring(ctx, asOf)
			require.NoError(t, err)
			assert.Empty(t, expenses)
			return nil
		}))
	})

	t.Run("AdvanceNextDue on unknown expense", func(t *testing.T) {
		err := store.Atomically(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.AdvanceNextDue(ctx, "missing", asOf)
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestUsersAndGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("users round trip", func(t *testing.T) {
		u := models.NewUser("dana@example.com", "Dana", "hash")
		require.NoError(t, store.CreateUser(ctx, u))

		byEmail, err := store.GetUserByEmail(ctx, "dana@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		byID, err := store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dana", byID.DisplayName)

		name, err := store.UserDisplayName(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dana", name)

		assert.Error(t, store.CreateUser(ctx, models.NewUser("dana@example.com", "Other", "hash")))

		_, err = store.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.UserDisplayName(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("membership keeps join order", func(t *testing.T) {
		group, users := seedGroup(t, store, "erin", "frank")
		late := models.NewUser("gina@example.com", "gina", "hash")
		require.NoError(t, store.CreateUser(ctx, late))

		require.NoError(t, store.AddGroupMember(ctx, group.ID, late.ID))
		require.NoError(t, store.AddGroupMember(ctx, group.ID, users[0].ID))

		members, err := store.GroupMembers(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{users[0].ID, users[1].ID, late.ID}, members)

		byCode, err := store.GetGroupByInviteCode(ctx, group.InviteCode)
		require.NoError(t, err)
		assert.Equal(t, group.ID, byCode.ID)
		assert.Equal(t, members, byCode.Members)

		groups, err := store.GroupsForUser(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{group.ID}, groups)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := store.GroupMembers(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.AddGroupMember(ctx, "missing", "u"), storage.ErrNotFound)
		_, err = store.GetGroupByInviteCode(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	u := models.NewUser("henry@example.com", "Henry", "hash")
	require.NoError(t, store.CreateUser(ctx, u))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}
