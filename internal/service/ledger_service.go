package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/roomsync/internal/calculator"
	"github.com/mmynk/roomsync/internal/events"
	"github.com/mmynk/roomsync/internal/middleware"
	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

// historyConcurrency caps parallel group loads for a personal summary.
const historyConcurrency = 4

// LedgerService implements the expense, payment and reporting operations.
// Nothing derived is stored: every read recomputes from the group's full history.
type LedgerService struct {
	options
	store      storage.Store
	recurrence *RecurrenceEngine
}

// NewLedgerService creates a LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	o := newOptions(opts)
	return &LedgerService{
		options:    o,
		store:      store,
		recurrence: &RecurrenceEngine{options: o, store: store},
	}
}

// currentUser resolves the authenticated caller.
func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// requireMember returns the group's members, failing unless userID is one of them.
func (s *LedgerService) requireMember(ctx context.Context, groupID, userID string) ([]string, error) {
	members, err := s.store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(members, userID) {
		return nil, ErrNotMember
	}
	return members, nil
}

func (s *LedgerService) loadHistory(ctx context.Context, groupID string) (calculator.History, error) {
	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return calculator.History{}, err
	}
	payments, err := s.store.ListPaymentsByGroup(ctx, groupID)
	if err != nil {
		return calculator.History{}, err
	}
	return calculator.History{GroupID: groupID, Expenses: expenses, Payments: payments}, nil
}

// buildExpense allocates splits for a validated request. Nothing is persisted.
func (s *LedgerService) buildExpense(ctx context.Context, payerID string, req *CreateExpenseRequest) (*models.Expense, error) {
	members, err := s.requireMember(ctx, req.GroupID, payerID)
	if err != nil {
		return nil, err
	}

	splits, err := calculator.Allocate(*req.Amount, req.SplitType, members, req.shares())
	if err != nil {
		return nil, invalid("", err)
	}
	if req.SplitType == models.SplitCustom {
		for _, split := range splits {
			if !slices.Contains(members, split.UserID) {
				return nil, invalid("user "+split.UserID, ErrNotInGroup)
			}
		}
	}

	return &models.Expense{
		Description: req.Description,
		Amount:      *req.Amount,
		GroupID:     req.GroupID,
		PayerID:     payerID,
		CreatedAt:   s.now().Unix(),
		Splits:      splits,
	}, nil
}

// CreateExpense allocates the expense across the group and stores it with its
// splits in one transaction.
func (s *LedgerService) CreateExpense(ctx context.Context, req *CreateExpenseRequest) (_ *CreateExpenseResponse, err error) {
	defer func() { s.metrics.ObserveOperation("create_expense", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "group_id", req.GroupID, "error", err)
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"split_type", req.SplitType,
		"splits", len(expense.Splits),
	)
	s.publish(ctx, events.ExpenseCreated, expense.GroupID, userID, expensePayload(expense))

	return &CreateExpenseResponse{ExpenseID: expense.ID}, nil
}

// CreateRecurringExpense stores an expense that the RecurrenceEngine clones
// forward on each due date.
func (s *LedgerService) CreateRecurringExpense(ctx context.Context, req *CreateRecurringExpenseRequest) (_ *CreateRecurringExpenseResponse, err error) {
	defer func() { s.metrics.ObserveOperation("create_recurring_expense", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, userID, &req.CreateExpenseRequest)
	if err != nil {
		return nil, err
	}
	due := req.nextDue(s.now())
	expense.Recurring = true
	expense.Cadence = req.RecurrenceType
	expense.NextDueDate = &due

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateRecurringExpense failed", "group_id", req.GroupID, "error", err)
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	slog.Info("Recurring expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"cadence", expense.Cadence,
		"next_due_date", due.Format(DateLayout),
	)
	s.publish(ctx, events.ExpenseCreated, expense.GroupID, userID, expensePayload(expense))

	return &CreateRecurringExpenseResponse{
		ExpenseID:   expense.ID,
		NextDueDate: due.Format(DateLayout),
	}, nil
}

// RecordPayment stores a repayment from the caller to another group member.
func (s *LedgerService) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (_ *RecordPaymentResponse, err error) {
	defer func() { s.metrics.ObserveOperation("record_payment", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	members, err := s.requireMember(ctx, req.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if req.ToUser == userID {
		return nil, invalid("to_user", ErrSelfPayment)
	}
	if !slices.Contains(members, req.ToUser) {
		return nil, invalid("to_user", ErrNotInGroup)
	}

	if req.ExpenseID != "" {
		expense, err := s.store.GetExpense(ctx, req.ExpenseID)
		if err != nil {
			return nil, err
		}
		if expense.GroupID != req.GroupID {
			return nil, invalid("expense_id", ErrWrongGroup)
		}
	}

	payment := &models.Payment{
		ExpenseID:  req.ExpenseID,
		GroupID:    req.GroupID,
		FromUserID: userID,
		ToUserID:   req.ToUser,
		Amount:     *req.Amount,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		slog.Error("RecordPayment failed", "group_id", req.GroupID, "error", err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	slog.Info("Payment recorded",
		"payment_id", payment.ID,
		"group_id", payment.GroupID,
		"expense_id", payment.ExpenseID,
	)
	s.publish(ctx, events.PaymentRecorded, payment.GroupID, userID, map[string]string{
		"payment_id": payment.ID,
		"expense_id": payment.ExpenseID,
		"from":       payment.FromUserID,
		"to":         payment.ToUserID,
		"amount":     payment.Amount.StringFixed(calculator.CentPlaces),
	})

	return &RecordPaymentResponse{Message: "Payment recorded", PaymentID: payment.ID}, nil
}

// GroupBalances returns every user's net balance in the group: current
// members in join order, then anyone else still present in the history.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID string) (_ []BalanceEntry, err error) {
	defer func() { s.metrics.ObserveOperation("group_balances", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := calculator.GroupBalances(members, history)
	names := newNameResolver(s.store)

	entries := make([]BalanceEntry, 0, len(balances))
	for _, id := range balanceOrder(members, balances) {
		name, err := names.name(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, BalanceEntry{UserID: id, Name: name, Balance: NewMoney(balances[id])})
	}
	return entries, nil
}

// DebtHistory lists, newest expense first, what each user still owes on each
// expense. Expenses with nothing outstanding are omitted.
func (s *LedgerService) DebtHistory(ctx context.Context, groupID string) (_ []ExpenseDebts, err error) {
	defer func() { s.metrics.ObserveOperation("debt_history", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}

	byExpense := make(map[string][]calculator.DebtEdge)
	for _, edge := range calculator.OutstandingDebts(history) {
		byExpense[edge.ExpenseID] = append(byExpense[edge.ExpenseID], edge)
	}

	names := newNameResolver(s.store)
	result := make([]ExpenseDebts, 0, len(byExpense))
	for _, e := range history.Expenses {
		edges := byExpense[e.ID]
		if len(edges) == 0 {
			continue
		}

		payer, err := names.ref(ctx, e.PayerID)
		if err != nil {
			return nil, err
		}
		entry := ExpenseDebts{
			ExpenseID:   e.ID,
			Description: e.Description,
			TotalAmount: NewMoney(e.Amount),
			PaidBy:      payer,
			CreatedAt:   time.Unix(e.CreatedAt, 0).UTC().Format(time.RFC3339),
		}
		for _, edge := range edges {
			debtor, err := names.ref(ctx, edge.From)
			if err != nil {
				return nil, err
			}
			entry.Owes = append(entry.Owes, DebtEntry{From: debtor, To: payer, Amount: NewMoney(edge.Amount)})
		}
		result = append(result, entry)
	}
	return result, nil
}

// PersonalSummary aggregates the caller's position across every group they belong to.
func (s *LedgerService) PersonalSummary(ctx context.Context) (_ *PersonalSummaryResponse, err error) {
	defer func() { s.metrics.ObserveOperation("personal_summary", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	groupIDs, err := s.store.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	histories := make([]calculator.History, len(groupIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)
	for i, groupID := range groupIDs {
		g.Go(func() error {
			h, err := s.loadHistory(gctx, groupID)
			if err != nil {
				return fmt.Errorf("load group %s: %w", groupID, err)
			}
			histories[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := calculator.PersonalSummary(userID, histories)
	names := newNameResolver(s.store)

	name, err := names.name(ctx, userID)
	if err != nil {
		return nil, err
	}
	owesTo, err := names.details(ctx, sum.OwesTo)
	if err != nil {
		return nil, err
	}
	owedBy, err := names.details(ctx, sum.OwedBy)
	if err != nil {
		return nil, err
	}

	return &PersonalSummaryResponse{
		UserID:            userID,
		Name:              name,
		TotalPaid:         NewMoney(sum.TotalPaid),
		TotalOwedToOthers: NewMoney(sum.TotalOwedToOthers),
		TotalOthersOweMe:  NewMoney(sum.TotalOwedByOthers),
		PaymentsMade:      NewMoney(sum.PaymentsMade),
		PaymentsReceived:  NewMoney(sum.PaymentsReceived),
		Details:           SummaryDetails{OwesTo: owesTo, OwedBy: owedBy},
	}, nil
}

// SettlementPlan suggests the transfers that bring every balance in the group to zero.
func (s *LedgerService) SettlementPlan(ctx context.Context, groupID string) (_ []TransferEntry, err error) {
	defer func() { s.metrics.ObserveOperation("settlement_plan", err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := calculator.GroupBalances(members, history)

	residual := decimal.Zero
	for _, b := range balances {
		residual = residual.Add(b)
	}
	if !residual.IsZero() {
		// Equal-split rounding drift ends up here. The plan leaves it unpaid.
		slog.Warn("Group balances do not net to zero",
			"group_id", groupID,
			"residual", residual.StringFixed(calculator.CentPlaces),
		)
	}

	names := newNameResolver(s.store)
	transfers := calculator.MinimizeTransfers(balances)
	result := make([]TransferEntry, 0, len(transfers))
	for _, t := range transfers {
		from, err := names.ref(ctx, t.From)
		if err != nil {
			return nil, err
		}
		to, err := names.ref(ctx, t.To)
		if err != nil {
			return nil, err
		}
		result = append(result, TransferEntry{From: from, To: to, Amount: NewMoney(t.Amount)})
	}
	return result, nil
}

// GenerateRecurring runs a recurrence pass for today on behalf of the caller.
func (s *LedgerService) GenerateRecurring(ctx context.Context) (*GenerateRecurringResponse, error) {
	if _, err := currentUser(ctx); err != nil {
		return nil, err
	}

	ids, err := s.recurrence.GenerateDue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return &GenerateRecurringResponse{Generated: len(ids), ExpenseIDs: ids}, nil
}

// balanceOrder lists members first, then remaining users sorted by ID.
func balanceOrder(members []string, balances map[string]decimal.Decimal) []string {
	order := slices.Clone(members)
	var extra []string
	for id := range balances {
		if !slices.Contains(members, id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func expensePayload(e *models.Expense) map[string]any {
	return map[string]any{
		"expense_id": e.ID,
		"payer_id":   e.PayerID,
		"amount":     e.Amount.StringFixed(calculator.CentPlaces),
		"recurring":  e.Recurring,
	}
}

// nameResolver caches display names for the duration of one request.
type nameResolver struct {
	dir   storage.Directory
	cache map[string]string
}

func newNameResolver(dir storage.Directory) *nameResolver {
	return &nameResolver{dir: dir, cache: make(map[string]string)}
}

// name returns the display name of userID, or "" if the account no longer exists.
func (r *nameResolver) name(ctx context.Context, userID string) (string, error) {
	if name, ok := r.cache[userID]; ok {
		return name, nil
	}
	name, err := r.dir.UserDisplayName(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	r.cache[userID] = name
	return name, nil
}

func (r *nameResolver) ref(ctx context.Context, userID string) (UserRef, error) {
	name, err := r.name(ctx, userID)
	return UserRef{UserID: userID, Name: name}, err
}

func (r *nameResolver) details(ctx context.Context, lines []calculator.SummaryLine) ([]SummaryDetail, error) {
	details := make([]SummaryDetail, 0, len(lines))
	for _, line := range lines {
		name, err := r.name(ctx, line.CounterpartyID)
		if err != nil {
			return nil, err
		}
		details = append(details, SummaryDetail{
			UserID: line.CounterpartyID,
			Name:   name,
			Amount: NewMoney(line.Amount),
			Expense: ExpenseRef{
				ID:          line.Expense.ID,
				Description: line.Expense.Description,
				Total:       NewMoney(line.Expense.Amount),
			},
		})
	}
	return details, nil
}
