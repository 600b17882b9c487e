package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/tutor-scheduler/internal/testfixtures"
)

type testServer struct {
	factory *testfixtures.ServiceFactory
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	factory := testfixtures.NewServiceFactory()
	logger := slog.New(slog.DiscardHandler)
	handler := NewRouter(RouterConfig{
		Students:   NewStudentHandler(factory.NewStudentService(), factory.Clock.NowFunc(), logger),
		Schedules:  NewScheduleHandler(factory.NewScheduleService(), testfixtures.SGT, logger),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger), Recoverer(logger)},
	})
	return &testServer{factory: factory, handler: handler}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return out
}

const alexBody = `{
	"name": "Alex Tan",
	"study_year": "sec2",
	"phone": "91234567",
	"email": "alex@example.com",
	"address": "Blk 1 Clementi",
	"subjects": ["math", "phy"],
	"hourly_rate": "40",
	"sessions": [{"day": "MON", "start": "0900", "end": "1030"}]
}`

func TestStudentHandlersCreateAndGet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/students", alexBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/students/student-1" {
		t.Fatalf("unexpected Location %q", loc)
	}
	created := decodeBody[studentResponse](t, rec).Student
	if created.StudyYear != "SEC2" || len(created.Sessions) != 1 || created.Sessions[0] != "MON 0900 - 1030" {
		t.Fatalf("unexpected student %+v", created)
	}
	if created.WeeklyFee == nil || *created.WeeklyFee != "60.00" || created.WeeklyHours != 1.5 {
		t.Fatalf("expected weekly fee 60.00 for 1.5h, got %v %v", created.WeeklyFee, created.WeeklyHours)
	}
	if created.Payment.Status != "PENDING" || created.Payment.DaysOverdue != 0 {
		t.Fatalf("unexpected payment %+v", created.Payment)
	}

	rec = srv.do(t, http.MethodGet, "/students/student-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[studentResponse](t, rec).Student.Name; got != "Alex Tan" {
		t.Fatalf("expected Alex Tan, got %q", got)
	}

	rec = srv.do(t, http.MethodGet, "/students?q=tan", "")
	if list := decodeBody[listStudentsResponse](t, rec); len(list.Students) != 1 {
		t.Fatalf("expected one keyword match, got %+v", list)
	}
}

func TestStudentHandlersErrorMapping(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	if rec := srv.do(t, http.MethodPost, "/students", alexBody); rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		status   int
		code     string
		contains string
	}{
		{
			name:   "malformed json",
			method: http.MethodPost, target: "/students", body: `{"name":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate name",
			method: http.MethodPost, target: "/students", body: strings.Replace(alexBody, `"0900", "end": "1030"`, `"1100", "end": "1200"`, 1),
			status: http.StatusConflict, code: "ALREADY_EXISTS",
		},
		{
			name:   "overlapping session",
			method: http.MethodPost, target: "/students/student-1/sessions", body: `{"day":"MON","start":"1000","end":"1100"}`,
			status: http.StatusConflict, code: "OVERLAPPING_SESSIONS", contains: "MON 0900 - 1030",
		},
		{
			name:   "session too short",
			method: http.MethodPost, target: "/students/student-1/sessions", body: `{"day":"TUE","start":"1100","end":"1114"}`,
			status: http.StatusUnprocessableEntity, code: "INVALID_SESSION", contains: "duration",
		},
		{
			name:   "invalid field",
			method: http.MethodPatch, target: "/students/student-1", body: `{"phone":"12"}`,
			status: http.StatusUnprocessableEntity, code: "VALIDATION_FAILED", contains: "phone",
		},
		{
			name:   "unknown student",
			method: http.MethodGet, target: "/students/nobody",
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name:   "removing a session the student lacks",
			method: http.MethodDelete, target: "/students/student-1/sessions?day=FRI&start=0900&end=1000",
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name:   "clear without confirmation",
			method: http.MethodDelete, target: "/students",
			status: http.StatusBadRequest, contains: "confirm",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, tc.method, tc.target, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody[errorResponse](t, rec)
			if tc.code != "" && body.ErrorCode != tc.code {
				t.Fatalf("expected error code %s, got %+v", tc.code, body)
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("expected body to mention %q, got %s", tc.contains, rec.Body.String())
			}
		})
	}

	if held := srv.factory.Held(); len(held) != 1 {
		t.Fatalf("expected rejected requests to leave one session held, got %v", held)
	}
}

func TestStudentHandlersEditing(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/students", alexBody)

	steps := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodPost, "/students/student-1/sessions", `{"day":"wed","start":"1600","end":"1700"}`},
		{http.MethodPut, "/students/student-1/payment", `{"status":"overdue","billing_start_day":1}`},
		{http.MethodPost, "/students/student-1/subjects", `{"subject":"chem"}`},
		{http.MethodPut, "/students/student-1/rate", `{"hourly_rate":"50.5"}`},
		{http.MethodDelete, "/students/student-1/sessions?day=MON&start=0900&end=1030", ""},
	}
	var last studentDTO
	for _, step := range steps {
		rec := srv.do(t, step.method, step.target, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d: %s", step.method, step.target, rec.Code, rec.Body.String())
		}
		last = decodeBody[studentResponse](t, rec).Student
	}

	if len(last.Sessions) != 1 || last.Sessions[0] != "WED 1600 - 1700" {
		t.Fatalf("unexpected sessions %v", last.Sessions)
	}
	if last.Payment.Status != "OVERDUE" || last.Payment.DaysOverdue != 10 {
		t.Fatalf("expected 10 days overdue since 1 March, got %+v", last.Payment)
	}
	if *last.HourlyRate != "50.50" || *last.WeeklyFee != "50.50" {
		t.Fatalf("unexpected rate %v fee %v", *last.HourlyRate, *last.WeeklyFee)
	}
	if strings.Join(last.Subjects, ",") != "MATH,PHY,CHEM" {
		t.Fatalf("unexpected subjects %v", last.Subjects)
	}

	rec := srv.do(t, http.MethodPut, "/students/student-1/sessions", `{"sessions":[{"day":"SUN","start":"0800","end":"2200"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace sessions: expected 200, got %d", rec.Code)
	}
	if answer := decodeBody[freeSlotResponse](t, srv.do(t, http.MethodGet, "/free?hours=14", "")); answer.Slot != "MONDAY 08:00" {
		t.Fatalf("expected Monday free after replacing sessions, got %+v", answer)
	}

	if rec := srv.do(t, http.MethodDelete, "/students/student-1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if held := srv.factory.Held(); len(held) != 0 {
		t.Fatalf("expected delete to release sessions, got %v", held)
	}
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/students", alexBody)
	bea := strings.NewReplacer(`"Alex Tan"`, `"Bea Lim"`, `"0900", "end": "1030"`, `"1600", "end": "1700"`, `"MON"`, `"WED"`).Replace(alexBody)
	if rec := srv.do(t, http.MethodPost, "/students", bea); rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d %s", rec.Code, rec.Body.String())
	}

	t.Run("timetable", func(t *testing.T) {
		timetable := decodeBody[timetableResponse](t, srv.do(t, http.MethodGet, "/timetable", ""))
		if len(timetable.Slots) != 2 || timetable.Slots[0].Session != "MON 0900 - 1030" || timetable.Slots[0].Students[0] != "Alex Tan" {
			t.Fatalf("unexpected timetable %+v", timetable)
		}
	})

	t.Run("free slot", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/free?hours=2", "")
		if answer := decodeBody[freeSlotResponse](t, rec); answer.Slot != "MONDAY 10:30" || !answer.IsFree {
			t.Fatalf("unexpected answer %+v", answer)
		}
		for _, target := range []string{"/free?hours=abc", "/free?hours=0", "/free?hours=15"} {
			if rec := srv.do(t, http.MethodGet, target, ""); rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("%s: expected 422, got %d", target, rec.Code)
			}
		}
	})

	t.Run("upcoming week", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/upcoming?week=2024-03-13", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		lessons := decodeBody[upcomingResponse](t, rec).Lessons
		if len(lessons) != 2 || lessons[0].StudentName != "Alex Tan" || lessons[0].Start != "2024-03-11T09:00:00+08:00" {
			t.Fatalf("unexpected lessons %+v", lessons)
		}
		if rec := srv.do(t, http.MethodGet, "/upcoming?from=yesterday", ""); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for a bad bound, got %d", rec.Code)
		}
	})

	t.Run("calendar", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/calendar.ics", "")
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
			t.Fatalf("unexpected content type %q", ct)
		}
		if n := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); n != 2 {
			t.Fatalf("expected 2 events, got %d", n)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		if rec := srv.do(t, http.MethodPost, "/timetable", ""); rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("clear with confirmation", func(t *testing.T) {
		rec := srv.do(t, http.MethodDelete, "/students?confirm=true", "")
		if got := decodeBody[clearResponse](t, rec); got.Deleted != 2 {
			t.Fatalf("expected 2 deleted, got %+v", got)
		}
	})
}
