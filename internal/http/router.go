package http

import (
	"net/http"
)

// RouterConfig selects the handlers and the middleware chain, outermost first.
type RouterConfig struct {
	Students   *StudentHandler
	Schedules  *ScheduleHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s := cfg.Students; s != nil {
		mux.HandleFunc("GET /students", s.List)
		mux.HandleFunc("POST /students", s.Create)
		mux.HandleFunc("DELETE /students", s.Clear)
		mux.HandleFunc("GET /students/{id}", s.Get)
		mux.HandleFunc("PATCH /students/{id}", s.Update)
		mux.HandleFunc("DELETE /students/{id}", s.Delete)
		mux.HandleFunc("POST /students/{id}/sessions", s.AddSession)
		mux.HandleFunc("PUT /students/{id}/sessions", s.ReplaceSessions)
		mux.HandleFunc("DELETE /students/{id}/sessions", s.RemoveSession)
		mux.HandleFunc("PUT /students/{id}/payment", s.SetPayment)
		mux.HandleFunc("POST /students/{id}/subjects", s.AddSubject)
		mux.HandleFunc("PUT /students/{id}/rate", s.SetRate)
	}

	if s := cfg.Schedules; s != nil {
		mux.HandleFunc("GET /timetable", s.Timetable)
		mux.HandleFunc("GET /free", s.Free)
		mux.HandleFunc("GET /upcoming", s.Upcoming)
		mux.HandleFunc("GET /calendar.ics", s.Calendar)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
