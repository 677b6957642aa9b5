package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cmlabs-hris/payroll-ledger/internal/config"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// ========== FAKES ==========

type fakePayrollService struct {
	createReq  payroll.CreatePayslipRequest
	bulkReq    payroll.BulkPayslipRequest
	sheet      string
	filter     payroll.PayslipFilter
	documentID string

	err  error
	bulk payroll.BulkPayslipResponse
	list payroll.ListPayslipResponse
}

func (f *fakePayrollService) Preview(ctx context.Context, req payroll.CreatePayslipRequest) (payroll.PayslipResponse, error) {
	f.createReq = req
	return payroll.PayslipResponse{EmployeeID: req.EmployeeID, Period: req.Period, NetSalary: "990"}, f.err
}

func (f *fakePayrollService) Create(ctx context.Context, req payroll.CreatePayslipRequest) (payroll.PayslipResponse, error) {
	f.createReq = req
	if f.err != nil {
		return payroll.PayslipResponse{}, f.err
	}
	return payroll.PayslipResponse{ID: "slip-1", EmployeeID: req.EmployeeID, Period: req.Period, NetSalary: "990"}, nil
}

func (f *fakePayrollService) RunBulk(ctx context.Context, req payroll.BulkPayslipRequest) (payroll.BulkPayslipResponse, error) {
	f.bulkReq = req
	return f.bulk, f.err
}

func (f *fakePayrollService) ImportBulk(ctx context.Context, sheet io.Reader, req payroll.BulkPayslipRequest) (payroll.BulkPayslipResponse, error) {
	f.bulkReq = req
	data, _ := io.ReadAll(sheet)
	f.sheet = string(data)
	return f.bulk, f.err
}

func (f *fakePayrollService) GetByID(ctx context.Context, id string) (payroll.PayslipResponse, error) {
	return payroll.PayslipResponse{ID: id}, f.err
}

func (f *fakePayrollService) List(ctx context.Context, filter payroll.PayslipFilter) (payroll.ListPayslipResponse, error) {
	f.filter = filter
	return f.list, f.err
}

func (f *fakePayrollService) OpenDocument(ctx context.Context, id string) (io.ReadCloser, string, error) {
	f.documentID = id
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(strings.NewReader("%PDF-1.3 fake")), "payslip-emp-1-2026-05.pdf", nil
}

func (f *fakePayrollService) BackfillDocuments(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

type fakeLedgerService struct {
	query  ledger.Query
	mu     sync.Mutex
	topic  string
	events chan ledger.StreamEvent
	err    error
}

func (f *fakeLedgerService) Summary(ctx context.Context, q ledger.Query) (ledger.SummaryResponse, error) {
	f.query = q
	return ledger.SummaryResponse{RecordCount: 2}, f.err
}

func (f *fakeLedgerService) Export(ctx context.Context, q ledger.Query, w io.Writer) error {
	f.query = q
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK\x03\x04workbook"))
	return err
}

func (f *fakeLedgerService) Departments(ctx context.Context) ([]string, error) {
	return []string{"Engineering", "Finance"}, f.err
}

func (f *fakeLedgerService) Subscribe(ctx context.Context, topic string) (<-chan ledger.StreamEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	return f.events, func() {}
}

func (f *fakeLedgerService) subscribedTopic() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topic
}

// ========== FIXTURE ==========

type routerFixture struct {
	router  *chi.Mux
	jwt     jwt.Service
	payroll *fakePayrollService
	ledger  *fakeLedgerService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	jwtService, err := jwt.NewJWTService("handler-test-secret", "1h")
	require.NoError(t, err)

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	}
	f := &routerFixture{
		jwt:     jwtService,
		payroll: &fakePayrollService{},
		ledger:  &fakeLedgerService{events: make(chan ledger.StreamEvent, 4)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.router = NewRouter(cfg, logger, jwtService, NewPayrollHandler(f.payroll), NewLedgerHandler(f.ledger, jwtService))
	return f
}

func (f *routerFixture) token(t *testing.T, p user.Principal) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(p)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) adminToken(t *testing.T) string {
	return f.token(t, user.Principal{UserID: "u-admin", Role: user.RoleAdmin})
}

func (f *routerFixture) employeeToken(t *testing.T, employeeID string) string {
	return f.token(t, user.Principal{UserID: "u-" + employeeID, EmployeeID: employeeID, Role: user.RoleEmployee})
}

func (f *routerFixture) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

