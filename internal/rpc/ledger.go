// Package rpc serves the ledger operations as the Connect service
// roomsync.v1.LedgerService, using JSON-encoded Go structs as messages.
package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/roomsync/internal/service"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "roomsync.v1.LedgerService"

// Procedure paths, one per operation.
const (
	LedgerServiceCreateExpenseProcedure          = "/roomsync.v1.LedgerService/CreateExpense"
	LedgerServiceRecordPaymentProcedure          = "/roomsync.v1.LedgerService/RecordPayment"
	LedgerServiceGetGroupBalancesProcedure       = "/roomsync.v1.LedgerService/GetGroupBalances"
	LedgerServiceGetDebtHistoryProcedure         = "/roomsync.v1.LedgerService/GetDebtHistory"
	LedgerServiceGetPersonalSummaryProcedure     = "/roomsync.v1.LedgerService/GetPersonalSummary"
	LedgerServiceGetSettlementPlanProcedure      = "/roomsync.v1.LedgerService/GetSettlementPlan"
	LedgerServiceCreateRecurringExpenseProcedure = "/roomsync.v1.LedgerService/CreateRecurringExpense"
	LedgerServiceGenerateRecurringProcedure      = "/roomsync.v1.LedgerService/GenerateRecurring"
)

// GroupRequest addresses one group.
type GroupRequest struct {
	GroupID string `json:"group_id"`
}

// Empty is the request of operations that act on the caller alone.
type Empty struct{}

func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, connectError(procedure, err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
}

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService
// procedure and returns the path to mount it on. Callers normally pass
// middleware.RequireAuth through connect.WithInterceptors.
func NewLedgerServiceHandler(svc *service.LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	handlers := map[string]*connect.Handler{
		LedgerServiceCreateExpenseProcedure: unary(LedgerServiceCreateExpenseProcedure, svc.CreateExpense, opts),
		LedgerServiceRecordPaymentProcedure: unary(LedgerServiceRecordPaymentProcedure, svc.RecordPayment, opts),
		LedgerServiceGetGroupBalancesProcedure: unary(LedgerServiceGetGroupBalancesProcedure,
			func(ctx context.Context, req *GroupRequest) (*service.GroupBalancesResponse, error) {
				balances, err := svc.GroupBalances(ctx, req.GroupID)
				if err != nil {
					return nil, err
				}
				return &service.GroupBalancesResponse{Balances: balances}, nil
			}, opts),
		LedgerServiceGetDebtHistoryProcedure: unary(LedgerServiceGetDebtHistoryProcedure,
			func(ctx context.Context, req *GroupRequest) (*service.DebtHistoryResponse, error) {
				expenses, err := svc.DebtHistory(ctx, req.GroupID)
				if err != nil {
					return nil, err
				}
				return &service.DebtHistoryResponse{Expenses: expenses}, nil
			}, opts),
		LedgerServiceGetPersonalSummaryProcedure: unary(LedgerServiceGetPersonalSummaryProcedure,
			func(ctx context.Context, _ *Empty) (*service.PersonalSummaryResponse, error) {
				return svc.PersonalSummary(ctx)
			}, opts),
		LedgerServiceGetSettlementPlanProcedure: unary(LedgerServiceGetSettlementPlanProcedure,
			func(ctx context.Context, req *GroupRequest) (*service.SettlementPlanResponse, error) {
				transfers, err := svc.SettlementPlan(ctx, req.GroupID)
				if err != nil {
					return nil, err
				}
				return &service.SettlementPlanResponse{Transfers: transfers}, nil
			}, opts),
		LedgerServiceCreateRecurringExpenseProcedure: unary(LedgerServiceCreateRecurringExpenseProcedure, svc.CreateRecurringExpense, opts),
		LedgerServiceGenerateRecurringProcedure: unary(LedgerServiceGenerateRecurringProcedure,
			func(ctx context.Context, _ *Empty) (*service.GenerateRecurringResponse, error) {
				return svc.GenerateRecurring(ctx)
			}, opts),
	}

	path := "/" + LedgerServiceName + "/"
	return path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
