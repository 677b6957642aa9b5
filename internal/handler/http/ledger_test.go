package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerHandler_Summary_PassesQuery(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/summary?department=Sales&year=2026&window=6", f.adminToken(t), nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ledger.Query{Department: "Sales", Year: "2026", Window: "6"}, f.ledger.query)

	var summary ledger.SummaryResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &summary))
	assert.Equal(t, 2, summary.RecordCount)
}

func TestLedgerHandler_Summary_RequiresAdmin(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/summary", f.employeeToken(t, "emp-1"), nil, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLedgerHandler_Export(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/export?year=all", f.adminToken(t), nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "salary-ledger.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
	assert.Equal(t, "all", f.ledger.query.Year)
}

func TestLedgerHandler_Export_ErrorIsJSON(t *testing.T) {
	f := newRouterFixture(t)
	f.ledger.err = errors.New("database is down")

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/export", f.adminToken(t), nil, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestLedgerHandler_Departments(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/departments", f.adminToken(t), nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var departments []string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &departments))
	assert.Equal(t, []string{"Engineering", "Finance"}, departments)
}

func TestLedgerHandler_GetSSEToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/ledger/stream/token", f.employeeToken(t, "emp-7"), nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token ledger.SSETokenResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &token))
	assert.Equal(t, 300, token.ExpiresIn)

	principal, err := f.jwt.ValidateSSEToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "emp-7", principal.EmployeeID)
}

func TestLedgerHandler_Stream_MissingToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/stream", "", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLedgerHandler_Stream_RejectsAccessToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ledger/stream?token="+f.adminToken(t), "", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// readEvent reads one "event: ...\ndata: ...\n\n" block.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func streamTopicFor(t *testing.T, p user.Principal) (*routerFixture, *bufio.Reader, context.CancelFunc) {
	t.Helper()
	f := newRouterFixture(t)
	token, _, err := f.jwt.GenerateSSEToken(p)
	require.NoError(t, err)

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/ledger/stream?token="+token, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return f, bufio.NewReader(resp.Body), cancel
}

func TestLedgerHandler_Stream_AdminReceivesLedgerEvents(t *testing.T) {
	// Arrange
	f, reader, cancel := streamTopicFor(t, user.Principal{UserID: "u-admin", Role: user.RoleAdmin})
	defer cancel()

	// Act
	event, data := readEvent(t, reader)
	f.ledger.events <- ledger.StreamEvent{Event: ledger.EventBulkRunCompleted, Data: map[string]any{"period": "2026-03"}}
	nextEvent, nextData := readEvent(t, reader)

	// Assert
	assert.Equal(t, "connected", event)
	assert.JSONEq(t, `{"status":"connected","topic":"ledger"}`, data)
	assert.Equal(t, ledger.TopicLedger, f.ledger.subscribedTopic())
	assert.Equal(t, ledger.EventBulkRunCompleted, nextEvent)
	assert.JSONEq(t, `{"period":"2026-03"}`, nextData)
}

func TestLedgerHandler_Stream_EmployeeTopic(t *testing.T) {
	f, reader, cancel := streamTopicFor(t, user.Principal{UserID: "u-emp-3", EmployeeID: "emp-3", Role: user.RoleEmployee})
	defer cancel()

	event, _ := readEvent(t, reader)

	assert.Equal(t, "connected", event)
	assert.Equal(t, ledger.EmployeeTopic("emp-3"), f.ledger.subscribedTopic())
}
