package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/roomsync/internal/models"
)

// History is the full ledger of one group: expenses (with splits) and payments.
type History struct {
	GroupID  string
	Expenses []*models.Expense
	Payments []*models.Payment
}

// DebtEdge represents what one person still owes another on a single expense.
type DebtEdge struct {
	From      string // Person who owes
	To        string // Person who paid the expense
	ExpenseID string
	Amount    decimal.Decimal
}

// GroupBalances computes each user's net balance across a group's history.
// Positive means the user is owed money, negative means the user owes.
//
// Algorithm:
// - Every member starts at zero
// - For each expense: payer += amount, each split's user -= split amount
// - For each payment: sender += amount, receiver -= amount
// - Each balance is rounded to cents once, at the end
//
// Users who appear in the history but are no longer members are included so
// the balances still sum to the group total.
func GroupBalances(members []string, h History) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		balances[m] = decimal.Zero
	}

	for _, e := range h.Expenses {
		balances[e.PayerID] = balances[e.PayerID].Add(e.Amount)
		for _, s := range e.Splits {
			balances[s.UserID] = balances[s.UserID].Sub(s.Amount)
		}
	}

	for _, p := range h.Payments {
		balances[p.FromUserID] = balances[p.FromUserID].Add(p.Amount)
		balances[p.ToUserID] = balances[p.ToUserID].Sub(p.Amount)
	}

	for user, bal := range balances {
		balances[user] = Round(bal)
	}
	return balances
}

// OutstandingDebts lists, per expense, what each non-payer still owes the payer.
//
// remaining = split amount - sum(payments from the split's user to the payer
// linked to that expense). Only positive remainders (after rounding) are
// emitted. Debts are never netted across expenses, so a user may owe a
// counterparty on one expense while being owed by them on another.
func OutstandingDebts(h History) []DebtEdge {
	type paymentKey struct{ expense, from, to string }

	repaid := make(map[paymentKey]decimal.Decimal)
	for _, p := range h.Payments {
		if p.ExpenseID == "" {
			continue
		}
		k := paymentKey{p.ExpenseID, p.FromUserID, p.ToUserID}
		repaid[k] = repaid[k].Add(p.Amount)
	}

	var edges []DebtEdge
	for _, e := range h.Expenses {
		for _, s := range e.Splits {
			if s.UserID == e.PayerID {
				continue
			}
			remaining := Round(s.Amount.Sub(repaid[paymentKey{e.ID, s.UserID, e.PayerID}]))
			if !remaining.IsPositive() {
				continue
			}
			edges = append(edges, DebtEdge{
				From:      s.UserID,
				To:        e.PayerID,
				ExpenseID: e.ID,
				Amount:    remaining,
			})
		}
	}
	return edges
}

// SummaryLine is one gross obligation between the summarized user and a counterparty.
type SummaryLine struct {
	CounterpartyID string
	Expense        *models.Expense
	Amount         decimal.Decimal
}

// Summary aggregates one user's position across every group they belong to.
type Summary struct {
	TotalPaid         decimal.Decimal
	TotalOwedToOthers decimal.Decimal
	TotalOwedByOthers decimal.Decimal
	PaymentsMade      decimal.Decimal
	PaymentsReceived  decimal.Decimal

	// OwesTo lists the user's splits on expenses others paid.
	OwesTo []SummaryLine
	// OwedBy lists others' splits on expenses the user paid.
	OwedBy []SummaryLine
}

// PersonalSummary computes userID's totals over the given group histories.
//
// TotalOwedToOthers is the user's splits on others' expenses minus payments the
// user made; TotalOwedByOthers is others' splits on the user's expenses minus
// payments the user received. The detail lines are gross amounts, not reduced
// by payments, so they reconcile against the separate payment totals.
func PersonalSummary(userID string, histories []History) Summary {
	var sum Summary
	owed, owedBy := decimal.Zero, decimal.Zero

	for _, h := range histories {
		for _, e := range h.Expenses {
			if e.PayerID == userID {
				sum.TotalPaid = sum.TotalPaid.Add(e.Amount)
				for _, s := range e.Splits {
					if s.UserID == userID {
						continue
					}
					owedBy = owedBy.Add(s.Amount)
					sum.OwedBy = append(sum.OwedBy, SummaryLine{CounterpartyID: s.UserID, Expense: e, Amount: Round(s.Amount)})
				}
				continue
			}
			if s, ok := e.SplitFor(userID); ok {
				owed = owed.Add(s.Amount)
				sum.OwesTo = append(sum.OwesTo, SummaryLine{CounterpartyID: e.PayerID, Expense: e, Amount: Round(s.Amount)})
			}
		}

		for _, p := range h.Payments {
			if p.FromUserID == userID {
				sum.PaymentsMade = sum.PaymentsMade.Add(p.Amount)
			}
			if p.ToUserID == userID {
				sum.PaymentsReceived = sum.PaymentsReceived.Add(p.Amount)
			}
		}
	}

	sum.TotalOwedToOthers = Round(owed.Sub(sum.PaymentsMade))
	sum.TotalOwedByOthers = Round(owedBy.Sub(sum.PaymentsReceived))
	sum.TotalPaid = Round(sum.TotalPaid)
	sum.PaymentsMade = Round(sum.PaymentsMade)
	sum.PaymentsReceived = Round(sum.PaymentsReceived)
	return sum
}
