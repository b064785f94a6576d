package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Transfer is a suggested payment that moves balances toward zero.
type Transfer struct {
	From   string // Debtor
	To     string // Creditor
	Amount decimal.Decimal
}

type party struct {
	id     string
	amount decimal.Decimal
}

// MinimizeTransfers reduces net balances to an ordered list of transfers.
//
// Creditors (balance > 0) and debtors (balance < 0) are each walked in
// ascending user ID order. The current debtor pays the current creditor
// min(debt, credit); whichever side reaches zero advances (both do on a tie).
// The walk stops when either list is exhausted, so at most
// creditors+debtors-1 transfers are produced.
//
// The balances must sum to zero. Any residual is left unpaid on the longer
// list; callers should check the precondition instead of relying on the plan.
func MinimizeTransfers(balances map[string]decimal.Decimal) []Transfer {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var creditors, debtors []party
	for _, id := range ids {
		bal := balances[id]
		switch {
		case bal.IsPositive():
			creditors = append(creditors, party{id, bal})
		case bal.IsNegative():
			debtors = append(debtors, party{id, bal.Neg()})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)

		transfers = append(transfers, Transfer{
			From:   debtors[i].id,
			To:     creditors[j].id,
			Amount: amount,
		})

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return transfers
}
