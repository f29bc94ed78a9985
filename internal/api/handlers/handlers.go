// Package handlers exposes the ledger engine over HTTP: mutation submission
// and polling, analytics queries and cache control.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Artemka2031/finance-control-sub000/internal/analytics"
	"github.com/Artemka2031/finance-control-sub000/internal/api/middleware"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
	"github.com/Artemka2031/finance-control-sub000/internal/tasks"
)

// statusFor maps engine errors onto HTTP status codes. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrDateNotFound),
		errors.Is(err, schema.ErrEntityNotFound),
		errors.Is(err, tasks.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrNotCompleted), errors.Is(err, tasks.ErrTypeMismatch):
		return http.StatusConflict
	case errors.Is(err, schema.ErrSchemaUnavailable), errors.Is(err, sheet.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// OperationsHandler accepts mutation submissions.
type OperationsHandler struct {
	sched *tasks.Scheduler
	log   zerolog.Logger
}

func NewOperationsHandler(sched *tasks.Scheduler, log zerolog.Logger) *OperationsHandler {
	return &OperationsHandler{sched: sched, log: log}
}

// Submit handles POST /api/operations
func (h *OperationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskType tasks.TaskType  `json:"task_type"`
		Payload  json.RawMessage `json:"payload"`
		OwnerID  string          `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.TaskType.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown task type")
		return
	}
	if len(req.Payload) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Payload is required")
		return
	}

	taskID, err := h.sched.Submit(r.Context(), req.TaskType, req.Payload, req.OwnerID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to queue task")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to queue task")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  string(tasks.TaskStatusQueued),
	})
}

// TasksHandler serves task status polling and listing.
type TasksHandler struct {
	sched *tasks.Scheduler
	log   zerolog.Logger
}

func NewTasksHandler(sched *tasks.Scheduler, log zerolog.Logger) *TasksHandler {
	return &TasksHandler{sched: sched, log: log}
}

// Get handles GET /api/tasks/:taskId
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.sched.Status(r.Context(), taskID)
	if err != nil {
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, task)
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := tasks.Filter{
		OwnerID: q.Get("owner"),
		Status:  tasks.TaskStatus(q.Get("status")),
		Type:    tasks.TaskType(q.Get("type")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	list, err := h.sched.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tasks")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
		"count": len(list),
	})
}

// AnalyticsHandler serves the aggregation queries.
type AnalyticsHandler struct {
	engine *analytics.Engine
	log    zerolog.Logger
}

func NewAnalyticsHandler(engine *analytics.Engine, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, log: log}
}

func parseOptions(r *http.Request) (analytics.Options, error) {
	q := r.URL.Query()
	level, err := analytics.ParseLevel(q.Get("level"))
	if err != nil {
		return analytics.Options{}, err
	}
	return analytics.Options{
		Level:               level,
		ZeroSuppress:        q.Get("zero_suppress") == "true",
		IncludeMonthSummary: q.Get("include_month_summary") == "true",
		IncludeBalances:     q.Get("include_balances") == "true",
	}, nil
}

// Day handles GET /api/analytics/day?date=DD.MM.YYYY
func (h *AnalyticsHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		middleware.WriteError(w, http.StatusBadRequest, "date is required")
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := h.engine.DayBreakdown(r.Context(), date, opts)
	if err != nil {
		h.log.Error().Err(err).Str("date", date).Msg("Day breakdown failed")
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, day)
}

// Month handles GET /api/analytics/month?month=YYYY-MM
func (h *AnalyticsHandler) Month(w http.ResponseWriter, r *http.Request) {
	ym := r.URL.Query().Get("month")
	if ym == "" {
		middleware.WriteError(w, http.StatusBadRequest, "month is required")
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	totals, err := h.engine.MonthTotals(r.Context(), ym, opts)
	if err != nil {
		h.log.Error().Err(err).Str("month", ym).Msg("Month totals failed")
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, totals)
}

// Period handles GET /api/analytics/period?start=DD.MM.YYYY&end=DD.MM.YYYY
func (h *AnalyticsHandler) Period(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		middleware.WriteError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.engine.PeriodExpenseSummary(r.Context(), start, end, opts)
	if err != nil {
		h.log.Error().Err(err).Str("start", start).Str("end", end).Msg("Period summary failed")
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Overview handles GET /api/analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	overview, err := h.engine.MonthsOverview(r.Context(), opts)
	if err != nil {
		h.log.Error().Err(err).Msg("Months overview failed")
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, overview)
}

// CacheHandler forces cache refreshes.
type CacheHandler struct {
	inv *tasks.Invalidator
	log zerolog.Logger
}

func NewCacheHandler(inv *tasks.Invalidator, log zerolog.Logger) *CacheHandler {
	return &CacheHandler{inv: inv, log: log}
}

// Refresh handles POST /api/cache/refresh
func (h *CacheHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.Refresh(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Cache refresh failed")
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
