package http

import (
	"net/http"
	"strings"

	"atelier/internal/core"
	applog "atelier/internal/log"
)

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid client ID").Write(w)
		return
	}
	var req struct {
		Amount core.Money `json:"amount"`
		Method string     `json:"method"`
		Date   string     `json:"date"`
		Notes  string     `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	date, err := parseDateOrZero(req.Date, s.loc)
	if err != nil {
		ValidationFailed(dateFieldError("date", err)).Write(w)
		return
	}

	payment, err := s.svc.Bookkeeping.RecordPayment(r.Context(), clientID, core.Payment{
		Amount: req.Amount,
		Method: sanitizeInput(req.Method),
		Date:   date,
		Note:   strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to record payment")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(payment).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string     `json:"type"`
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
		Date        string     `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	date, err := parseDateOrZero(req.Date, s.loc)
	if err != nil {
		ValidationFailed(dateFieldError("date", err)).Write(w)
		return
	}

	expense, err := s.svc.Bookkeeping.RecordExpense(r.Context(), core.BusinessExpense{
		Type:        sanitizeInput(req.Type),
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Date:        date,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to record expense")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(expense).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := core.ParsePeriod(q.Get("month"), q.Get("year"), s.now().In(s.loc))
	if err != nil {
		ValidationFailed(err).Write(w)
		return
	}
	expenses, err := s.svc.Bookkeeping.ListExpenses(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch expenses")
		return
	}
	if expenses == nil {
		expenses = []core.BusinessExpense{}
	}
	NewJSONResponse().Body(expenses).Write(w)
}

// handleFinances serves the period finance report. Any storage failure is
// reported as a single generic error.
func (s *Server) handleFinances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.svc.Finance.Report(r.Context(), q.Get("month"), q.Get("year"))
	if err != nil {
		if core.IsValidation(err) {
			ValidationFailed(err).Write(w)
			return
		}
		fields := applog.NewFields()
		if p, perr := core.ParsePeriod(q.Get("month"), q.Get("year"), s.now().In(s.loc)); perr == nil && !p.AllTime {
			fields = fields.WithPeriod(p.Year, p.Month)
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Finance report failed", err, applog.ComponentFinance, applog.OpReport, fields)
		InternalServerError("Failed to load data").Write(w)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}
