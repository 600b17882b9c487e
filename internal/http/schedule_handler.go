package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/recurrence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

type scheduleService interface {
	EarliestFreeSlot(ctx context.Context, hours int) (string, error)
	Timetable(ctx context.Context) []application.TimetableSlot
	Upcoming(ctx context.Context, params application.UpcomingParams) ([]recurrence.Occurrence, error)
	Calendar(ctx context.Context) (string, error)
}

// ScheduleHandler serves timetable queries and the calendar export.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
	location  *time.Location
}

// NewScheduleHandler interprets date-only query parameters in loc.
func NewScheduleHandler(service scheduleService, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base, location: loc}
}

func (h *ScheduleHandler) Timetable(w http.ResponseWriter, r *http.Request) {
	slots := h.service.Timetable(r.Context())
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			Session:   slot.Session.String(),
			Day:       slot.Session.Day().String(),
			Start:     slot.Session.Start().String(),
			End:       slot.Session.End().String(),
			Occupancy: slot.Occupancy,
			Students:  append([]string{}, slot.Owners...),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, timetableResponse{Slots: out})
}

// Free answers GET /free?hours=N with the earliest free slot of N hours.
func (h *ScheduleHandler) Free(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("hours"))
	hours, err := strconv.Atoi(raw)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"hours": "hours must be a whole number"},
		})
		return
	}

	answer, err := h.service.EarliestFreeSlot(r.Context(), hours)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, freeSlotResponse{
		Hours:  hours,
		Slot:   answer,
		IsFree: answer != scheduler.NoFreeTime,
	})
}

func (h *ScheduleHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	params, err := h.buildUpcomingParams(r.URL.Query())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	occurrences, err := h.service.Upcoming(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, upcomingResponse{Lessons: toLessonDTOs(occurrences)})
}

func (h *ScheduleHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Calendar(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(content)); err != nil {
		handlerLogger(r.Context(), h.logger, "ScheduleHandler", "Calendar").ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

// buildUpcomingParams reads from/until (RFC 3339 or YYYY-MM-DD) and the day,
// week and month presets. Explicit bounds win over a preset.
func (h *ScheduleHandler) buildUpcomingParams(values url.Values) (application.UpcomingParams, error) {
	var params application.UpcomingParams
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}

	for _, field := range []string{"from", "until"} {
		value := strings.TrimSpace(values.Get(field))
		if value == "" {
			continue
		}
		ts, err := h.parseInstant(value)
		if err != nil {
			vErr.FieldErrors[field] = field + " must be RFC 3339 or YYYY-MM-DD"
			continue
		}
		if field == "from" {
			params.From = &ts
		} else {
			params.Until = &ts
		}
	}

	presets := []struct {
		name   string
		layout string
		period application.ListPeriod
	}{
		{name: "day", layout: time.DateOnly, period: application.ListPeriodDay},
		{name: "week", layout: time.DateOnly, period: application.ListPeriodWeek},
		{name: "month", layout: "2006-01", period: application.ListPeriodMonth},
	}
	for _, preset := range presets {
		value := strings.TrimSpace(values.Get(preset.name))
		if value == "" {
			continue
		}
		ts, err := time.ParseInLocation(preset.layout, value, h.location)
		if err != nil {
			vErr.FieldErrors[preset.name] = preset.name + " must use the " + preset.layout + " layout"
			continue
		}
		params.Period = preset.period
		params.PeriodReference = ts
		break
	}

	if len(vErr.FieldErrors) > 0 {
		return application.UpcomingParams{}, vErr
	}
	return params, nil
}

func (h *ScheduleHandler) parseInstant(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(time.DateOnly, value, h.location); err == nil {
		return ts, nil
	}
	return time.Time{}, errors.New("unrecognized time")
}

type slotDTO struct {
	Session   string   `json:"session"`
	Day       string   `json:"day"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Occupancy int      `json:"occupancy"`
	Students  []string `json:"students"`
}

type timetableResponse struct {
	Slots []slotDTO `json:"slots"`
}

type freeSlotResponse struct {
	Hours  int    `json:"hours"`
	Slot   string `json:"slot"`
	IsFree bool   `json:"is_free"`
}

type lessonDTO struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Session     string `json:"session"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type upcomingResponse struct {
	Lessons []lessonDTO `json:"lessons"`
}

func toLessonDTOs(occurrences []recurrence.Occurrence) []lessonDTO {
	out := make([]lessonDTO, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, lessonDTO{
			StudentID:   o.OwnerID,
			StudentName: o.OwnerName,
			Session:     o.Session.String(),
			Start:       o.Start.Format(time.RFC3339),
			End:         o.End.Format(time.RFC3339),
		})
	}
	return out
}
