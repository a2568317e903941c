package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/internal/application/command"
	"github.com/gympoint/academy-hub/internal/application/query"
	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/pkg/logger"
)

// apiFunc is a route handler that reports failures as errors; handle maps
// them to status codes.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

// statusFor maps an error to its HTTP status. Quota rejections are checked
// first: they are conflicts but surface as 401 like missing students.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkin.ErrQuotaExceeded):
		return http.StatusUnauthorized
	case shared.IsValidation(err), shared.IsConflict(err):
		return http.StatusBadRequest
	case shared.IsNotFound(err):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err),
		)
		msg := "Internal server error"
		if status == http.StatusGatewayTimeout {
			msg = "Request timeout exceeded"
		}
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	writeJSON(w, status, errorResponse{Error: shared.Message(err)})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("http", "PathID", "id must be a positive integer")
	}
	return id, nil
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value so validation reports the missing fields.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return shared.Validation("http", "Decode", "Validation fails: malformed JSON body")
	}
	if err := s.validator.Struct(dst); err != nil {
		return shared.Validation("http", "Validate", err.Error())
	}
	return nil
}

func parseDate(field, value string) (shared.Date, error) {
	d, err := shared.ParseDate(value)
	if err != nil {
		return shared.Date{}, shared.Validation("http", "ParseDate", field+" must be a date (YYYY-MM-DD)")
	}
	return d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    s.config.Name,
		"version": s.config.Version,
		"running": s.IsRunning(),
		"uptime":  s.Uptime().Round(time.Second).String(),
		"endpoints": map[string]string{
			"health":      "/health",
			"checkins":    "/students/{id}/checkins",
			"help_orders": "/students/{id}/help-orders",
			"enrollments": "/enrollments",
		},
	})
}

// handleHealth reports store and queue health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-IN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type checkinResponse struct {
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleRecordCheckin(w http.ResponseWriter, r *http.Request) error {
	studentID, err := pathID(r)
	if err != nil {
		return err
	}

	c, err := s.deps.RecordCheckin.Handle(r.Context(), command.RecordCheckinCommand{StudentID: studentID})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, checkinResponse{StudentID: c.StudentID, CreatedAt: c.CreatedAt})
	return nil
}

func (s *Server) handleListCheckins(w http.ResponseWriter, r *http.Request) error {
	studentID, err := pathID(r)
	if err != nil {
		return err
	}

	list, err := s.deps.ListCheckins.Handle(r.Context(), query.ListCheckinsQuery{StudentID: studentID})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, list)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP ORDER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createHelpOrderRequest struct {
	Question string `json:"question" validate:"required"`
}

type createHelpOrderResponse struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Question  string `json:"question"`
}

type answerHelpOrderRequest struct {
	Answer string `json:"answer" validate:"required"`
}

func (s *Server) handleCreateHelpOrder(w http.ResponseWriter, r *http.Request) error {
	studentID, err := pathID(r)
	if err != nil {
		return err
	}

	var req createHelpOrderRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	order, err := s.deps.CreateHelpOrder.Handle(r.Context(), command.CreateHelpOrderCommand{
		StudentID: studentID,
		Question:  req.Question,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, createHelpOrderResponse{
		ID:        order.ID,
		StudentID: order.StudentID,
		Question:  order.Question,
	})
	return nil
}

func (s *Server) handleListHelpOrders(w http.ResponseWriter, r *http.Request) error {
	studentID, err := pathID(r)
	if err != nil {
		return err
	}

	list, err := s.deps.ListHelpOrders.Handle(r.Context(), query.ListHelpOrdersQuery{StudentID: studentID})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) handleAnswerHelpOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req answerHelpOrderRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	res, err := s.deps.AnswerHelpOrder.Handle(r.Context(), command.AnswerHelpOrderCommand{ID: id, Answer: req.Answer})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, res.HelpOrder)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createEnrollmentRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	PlanID    int64  `json:"plan_id" validate:"required,gt=0"`
	StartDate string `json:"start_date" validate:"required"`
}

// updateEnrollmentRequest fields are optional; absent ones keep their value.
type updateEnrollmentRequest struct {
	StudentID *int64  `json:"student_id" validate:"omitempty,gt=0"`
	PlanID    *int64  `json:"plan_id" validate:"omitempty,gt=0"`
	StartDate *string `json:"start_date" validate:"omitempty,min=1"`
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) error {
	list, err := s.deps.ListEnrollments.Handle(r.Context())
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) handleCreateEnrollment(w http.ResponseWriter, r *http.Request) error {
	var req createEnrollmentRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}

	res, err := s.deps.CreateEnrollment.Handle(r.Context(), command.CreateEnrollmentCommand{
		StudentID: req.StudentID,
		PlanID:    req.PlanID,
		StartDate: start,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, res.Enrollment)
	return nil
}

func (s *Server) handleUpdateEnrollment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req updateEnrollmentRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	cmd := command.UpdateEnrollmentCommand{
		ID:        id,
		StudentID: req.StudentID,
		PlanID:    req.PlanID,
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return err
		}
		cmd.StartDate = &start
	}

	res, err := s.deps.UpdateEnrollment.Handle(r.Context(), cmd)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, res.Enrollment)
	return nil
}

func (s *Server) handleDeleteEnrollment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := s.deps.DeleteEnrollment.Handle(r.Context(), command.DeleteEnrollmentCommand{ID: id}); err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, struct{}{})
	return nil
}
