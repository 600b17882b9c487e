package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/tutor-scheduler/internal/application"
)

const maxBodyBytes = 1 << 20

type studentService interface {
	CreateStudent(ctx context.Context, input application.StudentInput) (application.Student, error)
	UpdateStudent(ctx context.Context, id string, patch application.StudentPatch) (application.Student, error)
	AddSession(ctx context.Context, id string, input application.SessionInput) (application.Student, error)
	RemoveSession(ctx context.Context, id string, input application.SessionInput) (application.Student, error)
	SetPayment(ctx context.Context, id, status string, billingDay *int) (application.Student, error)
	AddSubject(ctx context.Context, id, subject string) (application.Student, error)
	SetHourlyRate(ctx context.Context, id string, rate *string) (application.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	GetStudent(ctx context.Context, id string) (application.Student, error)
	ListStudents(ctx context.Context, filter application.StudentFilter) ([]application.Student, error)
	Clear(ctx context.Context) (int, error)
}

// StudentHandler serves the /students resource.
type StudentHandler struct {
	service   studentService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewStudentHandler(service studentService, now func() time.Time, logger *slog.Logger) *StudentHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &StudentHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *StudentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "StudentHandler", operation, attrs...)
}

func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := application.StudentFilter{Keywords: r.URL.Query()["q"]}
	students, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listStudentsResponse{Students: h.toStudentDTOs(students)})
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !h.decode(w, r, "Create", &req) {
		return
	}

	logger := h.log(r.Context(), "Create")
	student, err := h.service.CreateStudent(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "student creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "student created", "student_id", student.ID)
	w.Header().Set("Location", "/students/"+student.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, studentResponse{Student: h.toStudentDTO(student)})
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	student, err := h.service.GetStudent(r.Context(), id)
	h.render(w, r, student, err)
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req studentPatchRequest
	if !h.decode(w, r, "Update", &req) {
		return
	}
	student, err := h.service.UpdateStudent(r.Context(), id, req.toPatch())
	h.render(w, r, student, err)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Delete", "student_id", id).InfoContext(r.Context(), "student deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *StudentHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req sessionDTO
	if !h.decode(w, r, "AddSession", &req) {
		return
	}
	student, err := h.service.AddSession(r.Context(), id, req.toInput())
	h.render(w, r, student, err)
}

// RemoveSession reads the session from the day, start and end query parameters.
func (h *StudentHandler) RemoveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	input := application.SessionInput{Day: q.Get("day"), Start: q.Get("start"), End: q.Get("end")}
	student, err := h.service.RemoveSession(r.Context(), id, input)
	h.render(w, r, student, err)
}

func (h *StudentHandler) ReplaceSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req replaceSessionsRequest
	if !h.decode(w, r, "ReplaceSessions", &req) {
		return
	}
	sessions := toSessionInputs(req.Sessions)
	student, err := h.service.UpdateStudent(r.Context(), id, application.StudentPatch{Sessions: &sessions})
	h.render(w, r, student, err)
}

func (h *StudentHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, "SetPayment", &req) {
		return
	}
	student, err := h.service.SetPayment(r.Context(), id, req.Status, req.BillingStartDay)
	h.render(w, r, student, err)
}

func (h *StudentHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req subjectRequest
	if !h.decode(w, r, "AddSubject", &req) {
		return
	}
	student, err := h.service.AddSubject(r.Context(), id, req.Subject)
	h.render(w, r, student, err)
}

// SetRate sets the hourly rate; a null hourly_rate clears it.
func (h *StudentHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.studentID(w, r)
	if !ok {
		return
	}
	var req rateRequest
	if !h.decode(w, r, "SetRate", &req) {
		return
	}
	student, err := h.service.SetHourlyRate(r.Context(), id, req.HourlyRate)
	h.render(w, r, student, err)
}

// Clear deletes every student. It requires confirm=true.
func (h *StudentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errClearNotConfirmed)
		return
	}
	deleted, err := h.service.Clear(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Clear").InfoContext(r.Context(), "students cleared", "deleted", deleted)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, clearResponse{Deleted: deleted})
}

func (h *StudentHandler) studentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return "", false
	}
	return id, true
}

func (h *StudentHandler) decode(w http.ResponseWriter, r *http.Request, operation string, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

func (h *StudentHandler) render(w http.ResponseWriter, r *http.Request, student application.Student, err error) {
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, studentResponse{Student: h.toStudentDTO(student)})
}

type sessionDTO struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s sessionDTO) toInput() application.SessionInput {
	return application.SessionInput{Day: s.Day, Start: s.Start, End: s.End}
}

func toSessionInputs(sessions []sessionDTO) []application.SessionInput {
	out := make([]application.SessionInput, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.toInput())
	}
	return out
}

type studentRequest struct {
	Name       string       `json:"name"`
	StudyYear  string       `json:"study_year"`
	Phone      string       `json:"phone"`
	Email      string       `json:"email"`
	Address    string       `json:"address"`
	Subjects   []string     `json:"subjects"`
	HourlyRate *string      `json:"hourly_rate"`
	Sessions   []sessionDTO `json:"sessions"`
}

func (r studentRequest) toInput() application.StudentInput {
	return application.StudentInput{
		Name:       r.Name,
		StudyYear:  r.StudyYear,
		Phone:      r.Phone,
		Email:      r.Email,
		Address:    r.Address,
		Subjects:   append([]string(nil), r.Subjects...),
		HourlyRate: r.HourlyRate,
		Sessions:   toSessionInputs(r.Sessions),
	}
}

type studentPatchRequest struct {
	Name      *string       `json:"name"`
	StudyYear *string       `json:"study_year"`
	Phone     *string       `json:"phone"`
	Email     *string       `json:"email"`
	Address   *string       `json:"address"`
	Sessions  *[]sessionDTO `json:"sessions"`
}

func (r studentPatchRequest) toPatch() application.StudentPatch {
	patch := application.StudentPatch{
		Name:      r.Name,
		StudyYear: r.StudyYear,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
	}
	if r.Sessions != nil {
		sessions := toSessionInputs(*r.Sessions)
		patch.Sessions = &sessions
	}
	return patch
}

type replaceSessionsRequest struct {
	Sessions []sessionDTO `json:"sessions"`
}

type paymentRequest struct {
	Status          string `json:"status"`
	BillingStartDay *int   `json:"billing_start_day"`
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

type rateRequest struct {
	HourlyRate *string `json:"hourly_rate"`
}

type studentResponse struct {
	Student studentDTO `json:"student"`
}

type listStudentsResponse struct {
	Students []studentDTO `json:"students"`
}

type clearResponse struct {
	Deleted int `json:"deleted"`
}

type paymentDTO struct {
	Status          string `json:"status"`
	BillingStartDay int    `json:"billing_start_day"`
	StatusDate      string `json:"status_date,omitempty"`
	DaysOverdue     int    `json:"days_overdue"`
}

type studentDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StudyYear   string     `json:"study_year"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Address     string     `json:"address"`
	Subjects    []string   `json:"subjects"`
	Payment     paymentDTO `json:"payment"`
	HourlyRate  *string    `json:"hourly_rate,omitempty"`
	WeeklyFee   *string    `json:"weekly_fee,omitempty"`
	WeeklyHours float64    `json:"weekly_hours"`
	Sessions    []string   `json:"sessions"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

func (h *StudentHandler) toStudentDTO(student application.Student) studentDTO {
	dto := studentDTO{
		ID:        student.ID,
		Name:      student.Name,
		StudyYear: student.StudyYear,
		Phone:     student.Phone,
		Email:     student.Email,
		Address:   student.Address,
		Subjects:  append([]string{}, student.Subjects...),
		Payment: paymentDTO{
			Status:          string(student.Payment.Status),
			BillingStartDay: student.Payment.BillingStartDay,
			DaysOverdue:     student.Payment.DaysOverdue(h.now()),
		},
		WeeklyHours: student.WeeklyHours().Hours(),
		Sessions:    make([]string, 0, len(student.Sessions)),
		CreatedAt:   student.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   student.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !student.Payment.StatusDate.IsZero() {
		dto.Payment.StatusDate = student.Payment.StatusDate.UTC().Format(time.RFC3339)
	}
	if student.HourlyRate != nil {
		rate := student.HourlyRate.StringFixed(2)
		dto.HourlyRate = &rate
	}
	if fee, ok := student.WeeklyFee(); ok {
		text := fee.StringFixed(2)
		dto.WeeklyFee = &text
	}
	for _, s := range student.Sessions {
		dto.Sessions = append(dto.Sessions, s.String())
	}
	return dto
}

func (h *StudentHandler) toStudentDTOs(students []application.Student) []studentDTO {
	out := make([]studentDTO, 0, len(students))
	for _, s := range students {
		out = append(out, h.toStudentDTO(s))
	}
	return out
}
