package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// maxImportSize bounds multipart uploads of bulk sheets.
const maxImportSize = 10 << 20

type PayrollHandler interface {
	// Payslips
	Create(w http.ResponseWriter, r *http.Request)
	Preview(w http.ResponseWriter, r *http.Request)
	GetByID(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Document(w http.ResponseWriter, r *http.Request)

	// Bulk runs
	RunBulk(w http.ResponseWriter, r *http.Request)
	ImportBulk(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== PAYSLIPS ==========

func (h *payrollHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreatePayslipRequest
	if !readJSON(w, r, &req) {
		return
	}

	result, err := h.payrollService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payslip created successfully", result)
}

func (h *payrollHandlerImpl) Preview(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreatePayslipRequest
	if !readJSON(w, r, &req) {
		return
	}

	result, err := h.payrollService.Preview(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.payrollService.GetByID(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePayslipFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.payrollService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

// Document streams the rendered PDF of a payslip.
func (h *payrollHandlerImpl) Document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, fileName, err := h.payrollService.OpenDocument(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer doc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, doc)
}

// ========== BULK ==========

func (h *payrollHandlerImpl) RunBulk(w http.ResponseWriter, r *http.Request) {
	var req payroll.BulkPayslipRequest
	if !readJSON(w, r, &req) {
		return
	}

	result, err := h.payrollService.RunBulk(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeBulkResult(w, result)
}

// ImportBulk takes a multipart form: "file" holds the xlsx sheet and "data" the shared rules as JSON.
func (h *payrollHandlerImpl) ImportBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		response.BadRequest(w, "Failed to parse multipart form", nil)
		return
	}

	var req payroll.BulkPayslipRequest
	if dataJSON := r.FormValue("data"); dataJSON != "" {
		if err := decodeJSON([]byte(dataJSON), &req); err != nil {
			writeDecodeError(w, err, "Invalid JSON in data field")
			return
		}
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required", nil)
		return
	}
	defer file.Close()

	result, err := h.payrollService.ImportBulk(r.Context(), file, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeBulkResult(w, result)
}

func writeBulkResult(w http.ResponseWriter, result payroll.BulkPayslipResponse) {
	if result.Failed > 0 {
		response.MultiStatus(w, fmt.Sprintf("%d of %d payslips failed", result.Failed, result.Failed+result.Processed), result)
		return
	}
	response.Created(w, "Bulk payroll completed", result)
}

// ========== HELPERS ==========

// errMalformedBody marks a body that is not a JSON object.
var errMalformedBody = errors.New("malformed request body")

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := io.ReadAll(r.Body)
	if err == nil {
		err = decodeJSON(data, dst)
	}
	if err != nil {
		writeDecodeError(w, err, "Invalid request body")
		return false
	}
	return true
}

func writeDecodeError(w http.ResponseWriter, err error, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.HandleError(w, verrs)
		return
	}
	response.BadRequest(w, message, nil)
}

// decodeJSON decodes a JSON object into dst. Fields whose values do not fit their
// type come back as validator.ValidationErrors keyed by JSON name, every bad field
// at once; a body that is not an object yields errMalformedBody.
func decodeJSON(data []byte, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errMalformedBody
	}
	if err := json.Unmarshal(data, dst); err == nil {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	target := reflect.TypeOf(dst).Elem()
	var errs validator.ValidationErrors
	for _, key := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			return errMalformedBody
		}
		if err := json.Unmarshal(single, reflect.New(target).Interface()); err != nil {
			errs.Add(key, fieldDecodeMessage(err, fields[key]))
		}
	}
	if len(errs) == 0 {
		return errMalformedBody
	}
	return errs
}

func fieldDecodeMessage(err error, raw json.RawMessage) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, payroll.ErrInvalidMode):
		return "must be fixed or percentage"
	case errors.As(err, &typeErr):
		return "has an invalid type"
	case strings.HasPrefix(strings.TrimSpace(string(raw)), "["), strings.HasPrefix(strings.TrimSpace(string(raw)), "{"):
		return "has an invalid value"
	default:
		return "must be a number"
	}
}

func parsePayslipFilter(r *http.Request) (payroll.PayslipFilter, error) {
	q := r.URL.Query()
	filter := payroll.PayslipFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}

	if v := strings.TrimSpace(q.Get("employee_id")); v != "" {
		filter.EmployeeID = &v
	}
	if v := strings.TrimSpace(q.Get("department")); v != "" {
		filter.Department = &v
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid year %q", v)
		}
		filter.Year = &year
	}
	if v := q.Get("period"); v != "" {
		period, err := payroll.ParsePeriod(v)
		if err != nil {
			return filter, fmt.Errorf("invalid period %q, expected YYYY-MM", v)
		}
		filter.Period = &period
	}

	return filter, nil
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
