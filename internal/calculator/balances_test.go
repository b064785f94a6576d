package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomsync/internal/models"
)

func expense(id, payer, amount string, splits map[string]string) *models.Expense {
	e := &models.Expense{ID: id, PayerID: payer, Amount: d(amount)}
	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		if amt, ok := splits[user]; ok {
			e.Splits = append(e.Splits, models.Split{ExpenseID: id, UserID: user, Amount: d(amt)})
		}
	}
	return e
}

func payment(expenseID, from, to, amount string) *models.Payment {
	return &models.Payment{ExpenseID: expenseID, FromUserID: from, ToUserID: to, Amount: d(amount)}
}

func sumBalances(balances map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}

func TestGroupBalances(t *testing.T) {
	members := []string{"alice", "bob", "carol"}
	h := History{
		Expenses: []*models.Expense{
			expense("e1", "alice", "90", map[string]string{"alice": "30", "bob": "30", "carol": "30"}),
			expense("e2", "bob", "30", map[string]string{"alice": "10", "bob": "10", "carol": "10"}),
		},
		Payments: []*models.Payment{
			payment("e1", "carol", "alice", "20"),
		},
	}

	balances := GroupBalances(members, h)

	assert.True(t, d("30").Equal(balances["alice"]), "alice = %s", balances["alice"])
	assert.True(t, d("-10").Equal(balances["bob"]), "bob = %s", balances["bob"])
	assert.True(t, d("-20").Equal(balances["carol"]), "carol = %s", balances["carol"])
	assert.True(t, sumBalances(balances).IsZero())
}

func TestGroupBalancesIncludesIdleMembersAndFormerMembers(t *testing.T) {
	h := History{
		Expenses: []*models.Expense{
			expense("e1", "dave", "20", map[string]string{"alice": "10", "dave": "10"}),
		},
	}

	balances := GroupBalances([]string{"alice", "bob"}, h)

	require.Contains(t, balances, "bob")
	assert.True(t, balances["bob"].IsZero())
	assert.True(t, d("10").Equal(balances["dave"]))
	assert.True(t, sumBalances(balances).IsZero())
}

func TestGroupBalancesRoundsOnlyAtOutput(t *testing.T) {
	// Three thirds of a cent each would round to zero individually.
	var expenses []*models.Expense
	for i := 0; i < 3; i++ {
		expenses = append(expenses, &models.Expense{
			PayerID: "alice",
			Amount:  d("0.004"),
			Splits:  []models.Split{{UserID: "bob", Amount: d("0.004")}},
		})
	}

	balances := GroupBalances([]string{"alice", "bob"}, History{Expenses: expenses})

	assert.True(t, d("0.01").Equal(balances["alice"]), "alice = %s", balances["alice"])
	assert.True(t, d("-0.01").Equal(balances["bob"]), "bob = %s", balances["bob"])
}

func TestGroupBalancesSumToZeroForExactSplits(t *testing.T) {
	members := []string{"alice", "bob", "carol", "dave"}
	h := History{}
	payers := []string{"alice", "bob", "carol", "dave", "alice", "carol"}
	for i, payer := range payers {
		amount := decimal.NewFromInt(int64(17 * (i + 1))).Div(decimal.NewFromInt(4)).Round(2)
		splits, err := Allocate(amount, models.SplitCustom, nil, []Share{
			{UserID: "alice", Amount: amount.Sub(d("0.03"))},
			{UserID: "bob", Amount: d("0.01")},
			{UserID: "carol", Amount: d("0.01")},
			{UserID: "dave", Amount: d("0.01")},
		})
		require.NoError(t, err)
		h.Expenses = append(h.Expenses, &models.Expense{PayerID: payer, Amount: amount, Splits: splits})
	}
	h.Payments = append(h.Payments,
		payment("", "bob", "alice", "3.50"),
		payment("", "dave", "carol", "0.75"),
	)

	assert.True(t, sumBalances(GroupBalances(members, h)).IsZero())
}

func TestOutstandingDebts(t *testing.T) {
	t.Run("partial repayment leaves remainder", func(t *testing.T) {
		h := History{
			Expenses: []*models.Expense{
				expense("e1", "alice", "100", map[string]string{"alice": "50", "bob": "50"}),
			},
			Payments: []*models.Payment{payment("e1", "bob", "alice", "20")},
		}

		edges := OutstandingDebts(h)

		require.Len(t, edges, 1)
		assert.Equal(t, "bob", edges[0].From)
		assert.Equal(t, "alice", edges[0].To)
		assert.Equal(t, "e1", edges[0].ExpenseID)
		assert.True(t, d("30").Equal(edges[0].Amount), "amount = %s", edges[0].Amount)
	})

	t.Run("fully repaid and overpaid splits are dropped", func(t *testing.T) {
		h := History{
			Expenses: []*models.Expense{
				expense("e1", "alice", "60", map[string]string{"alice": "20", "bob": "20", "carol": "20"}),
			},
			Payments: []*models.Payment{
				payment("e1", "bob", "alice", "20"),
				payment("e1", "carol", "alice", "25"),
			},
		}

		assert.Empty(t, OutstandingDebts(h))
	})

	t.Run("payments on other expenses or unlinked do not count", func(t *testing.T) {
		h := History{
			Expenses: []*models.Expense{
				expense("e1", "alice", "40", map[string]string{"alice": "20", "bob": "20"}),
				expense("e2", "bob", "10", map[string]string{"alice": "5", "bob": "5"}),
			},
			Payments: []*models.Payment{
				payment("e2", "bob", "alice", "20"),
				payment("", "bob", "alice", "20"),
			},
		}

		edges := OutstandingDebts(h)

		require.Len(t, edges, 2)
		assert.Equal(t, DebtEdge{From: "bob", To: "alice", ExpenseID: "e1", Amount: edges[0].Amount}, edges[0])
		assert.True(t, d("20").Equal(edges[0].Amount))
		// Owing and being owed by the same person are reported separately.
		assert.Equal(t, "alice", edges[1].From)
		assert.Equal(t, "bob", edges[1].To)
		assert.True(t, d("5").Equal(edges[1].Amount))
	})

	t.Run("never returns non-positive amounts", func(t *testing.T) {
		h := History{
			Expenses: []*models.Expense{
				expense("e1", "alice", "10", map[string]string{"alice": "5", "bob": "5"}),
			},
			Payments: []*models.Payment{payment("e1", "bob", "alice", "4.999")},
		}

		for _, e := range OutstandingDebts(h) {
			assert.True(t, e.Amount.IsPositive())
		}
	})
}

func TestPersonalSummary(t *testing.T) {
	flat := History{
		GroupID: "flat",
		Expenses: []*models.Expense{
			expense("e1", "alice", "90", map[string]string{"alice": "30", "bob": "30", "carol": "30"}),
			expense("e2", "bob", "40", map[string]string{"alice": "20", "bob": "20"}),
		},
		Payments: []*models.Payment{
			payment("e1", "bob", "alice", "10"),
			payment("e2", "alice", "bob", "5"),
		},
	}
	trip := History{
		GroupID: "trip",
		Expenses: []*models.Expense{
			expense("e3", "carol", "12", map[string]string{"alice": "6", "carol": "6"}),
		},
	}

	sum := PersonalSummary("alice", []History{flat, trip})

	assert.True(t, d("90").Equal(sum.TotalPaid))
	// 20 (e2) + 6 (e3) - 5 paid
	assert.True(t, d("21").Equal(sum.TotalOwedToOthers), "owed to others = %s", sum.TotalOwedToOthers)
	// 30 + 30 (e1) - 10 received
	assert.True(t, d("50").Equal(sum.TotalOwedByOthers), "owed by others = %s", sum.TotalOwedByOthers)
	assert.True(t, d("5").Equal(sum.PaymentsMade))
	assert.True(t, d("10").Equal(sum.PaymentsReceived))

	require.Len(t, sum.OwedBy, 2)
	assert.Equal(t, "bob", sum.OwedBy[0].CounterpartyID)
	assert.True(t, d("30").Equal(sum.OwedBy[0].Amount), "detail lines are gross")

	require.Len(t, sum.OwesTo, 2)
	assert.Equal(t, "bob", sum.OwesTo[0].CounterpartyID)
	assert.Equal(t, "e2", sum.OwesTo[0].Expense.ID)
	assert.Equal(t, "carol", sum.OwesTo[1].CounterpartyID)
}
