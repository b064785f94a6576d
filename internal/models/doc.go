// Package models defines the core domain models for the roomsync ledger.
//
// # Ledger Models
//
// The ledger is built from three persisted records:
//   - Expense: a purchase paid by one member on behalf of a group
//   - Split: one member's share of an expense
//   - Payment: a repayment from one member to another
//
// Balances, debts and settlement plans are never stored. They are derived on
// demand from the full expense, split and payment history of a group.
//
// # Identity Models
//
//   - User: a registered account
//   - Group: a household whose members share expenses
//
// # Design Principles
//
// 1. **Exact money**: every amount is a decimal.Decimal, rounded to cents only at output
// 2. **Flat references**: relationships use ID strings instead of pointers
// 3. **Immutable history**: expenses and payments are append-only; the only in-place
// update is advancing a recurring expense's next due date
package models
