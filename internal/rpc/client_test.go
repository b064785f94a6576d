package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/roomsync/internal/service"
)

// LedgerServiceClient calls a LedgerService over the JSON codec.
type LedgerServiceClient struct {
	createExpense          *connect.Client[service.CreateExpenseRequest, service.CreateExpenseResponse]
	recordPayment          *connect.Client[service.RecordPaymentRequest, service.RecordPaymentResponse]
	getGroupBalances       *connect.Client[GroupRequest, service.GroupBalancesResponse]
	getDebtHistory         *connect.Client[GroupRequest, service.DebtHistoryResponse]
	getPersonalSummary     *connect.Client[Empty, service.PersonalSummaryResponse]
	getSettlementPlan      *connect.Client[GroupRequest, service.SettlementPlanResponse]
	createRecurringExpense *connect.Client[service.CreateRecurringExpenseRequest, service.CreateRecurringExpenseResponse]
	generateRecurring      *connect.Client[Empty, service.GenerateRecurringResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService served at
// baseURL (for example, http://localhost:8080).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &LedgerServiceClient{
		createExpense: connect.NewClient[service.CreateExpenseRequest, service.CreateExpenseResponse](
			httpClient, baseURL+LedgerServiceCreateExpenseProcedure, opts...),
		recordPayment: connect.NewClient[service.RecordPaymentRequest, service.RecordPaymentResponse](
			httpClient, baseURL+LedgerServiceRecordPaymentProcedure, opts...),
		getGroupBalances: connect.NewClient[GroupRequest, service.GroupBalancesResponse](
			httpClient, baseURL+LedgerServiceGetGroupBalancesProcedure, opts...),
		getDebtHistory: connect.NewClient[GroupRequest, service.DebtHistoryResponse](
			httpClient, baseURL+LedgerServiceGetDebtHistoryProcedure, opts...),
		getPersonalSummary: connect.NewClient[Empty, service.PersonalSummaryResponse](
			httpClient, baseURL+LedgerServiceGetPersonalSummaryProcedure, opts...),
		getSettlementPlan: connect.NewClient[GroupRequest, service.SettlementPlanResponse](
			httpClient, baseURL+LedgerServiceGetSettlementPlanProcedure, opts...),
		createRecurringExpense: connect.NewClient[service.CreateRecurringExpenseRequest, service.CreateRecurringExpenseResponse](
			httpClient, baseURL+LedgerServiceCreateRecurringExpenseProcedure, opts...),
		generateRecurring: connect.NewClient[Empty, service.GenerateRecurringResponse](
			httpClient, baseURL+LedgerServiceGenerateRecurringProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateExpense(ctx context.Context, req *connect.Request[service.CreateExpenseRequest]) (*connect.Response[service.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordPayment(ctx context.Context, req *connect.Request[service.RecordPaymentRequest]) (*connect.Response[service.RecordPaymentResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[service.GroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetDebtHistory(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[service.DebtHistoryResponse], error) {
	return c.getDebtHistory.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetPersonalSummary(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[service.PersonalSummaryResponse], error) {
	return c.getPersonalSummary.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSettlementPlan(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[service.SettlementPlanResponse], error) {
	return c.getSettlementPlan.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateRecurringExpense(ctx context.Context, req *connect.Request[service.CreateRecurringExpenseRequest]) (*connect.Response[service.CreateRecurringExpenseResponse], error) {
	return c.createRecurringExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GenerateRecurring(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[service.GenerateRecurringResponse], error) {
	return c.generateRecurring.CallUnary(ctx, req)
}
