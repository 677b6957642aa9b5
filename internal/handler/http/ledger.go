package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	streamKeepalive = 30 * time.Second
)

type LedgerHandler interface {
	// Summary returns totals, department breakdown, monthly trend and histogram
	Summary(w http.ResponseWriter, r *http.Request)
	// Export downloads the summary as an xlsx workbook
	Export(w http.ResponseWriter, r *http.Request)
	Departments(w http.ResponseWriter, r *http.Request)

	// SSE
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type ledgerHandlerImpl struct {
	ledgerService ledger.LedgerService
	jwtService    jwt.Service
}

func NewLedgerHandler(ledgerService ledger.LedgerService, jwtService jwt.Service) LedgerHandler {
	return &ledgerHandlerImpl{
		ledgerService: ledgerService,
		jwtService:    jwtService,
	}
}

func ledgerQuery(r *http.Request) ledger.Query {
	q := r.URL.Query()
	return ledger.Query{
		Department: q.Get("department"),
		Year:       q.Get("year"),
		Window:     q.Get("window"),
	}
}

func (h *ledgerHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerService.Summary(r.Context(), ledgerQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *ledgerHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "salary-ledger.xlsx"))

	// The workbook is built in full before the first write, so errors can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.ledgerService.Export(r.Context(), ledgerQuery(r), &buf); err != nil {
		w.Header().Del("Content-Disposition")
		response.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ledgerHandlerImpl) Departments(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerService.Departments(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetSSEToken generates a short-lived token for the ledger stream
func (h *ledgerHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	_, claims, _ := jwtauth.FromContext(r.Context())
	principal, err := user.PrincipalFromClaims(claims)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(principal)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, ledger.SSETokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream pushes payroll events over SSE. Admins receive the ledger topic,
// employees only their own payslip events.
func (h *ledgerHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot send headers, so the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	principal, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	topic := ledger.TopicLedger
	if !principal.IsAdmin() {
		topic = ledger.EmployeeTopic(principal.EmployeeID)
	}

	events, cleanup := h.ledgerService.Subscribe(r.Context(), topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"topic\":%q}\n\n", topic)
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
