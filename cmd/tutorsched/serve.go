package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/example/tutor-scheduler/internal/http"
	"github.com/example/tutor-scheduler/internal/ics"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the timetable API and run the scheduled calendar export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	rt, err := c.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			c.logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if c.cfg.AccessKeyHash == "" {
		c.logger.Warn("access_key_hash is empty, the API is not protected")
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Students:  httptransport.NewStudentHandler(rt.students, c.now, c.logger),
		Schedules: httptransport.NewScheduleHandler(rt.schedule, c.cfg.Location(), c.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(c.logger),
			httptransport.Recoverer(c.logger),
			httptransport.RequireAccessKey(c.cfg.AccessKeyHash, c.logger),
		},
	})

	server := &http.Server{
		Addr:              c.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	exportDone := make(chan struct{})
	if c.cfg.ExportEnabled() {
		refresher, err := ics.NewRefresher(c.cfg.ICSExportSchedule, c.cfg.ICSExportPath, rt.schedule, rt.schedule.Builder(), c.cfg.Location(), c.logger)
		if err != nil {
			return err
		}
		go func() {
			defer close(exportDone)
			if err := refresher.Run(ctx); err != nil {
				c.logger.Error("calendar export stopped", "error", err)
			}
		}()
	} else {
		close(exportDone)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	c.logger.Info("tutor scheduler listening", "addr", server.Addr, "timezone", c.cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-exportDone
	c.logger.Info("tutor scheduler stopped")
	return nil
}
