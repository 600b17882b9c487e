package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/ics"
	"github.com/example/tutor-scheduler/internal/persistence/sqlite"
)

func (c *cli) migrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := sqlite.Open(ctx, c.cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer storage.Close()

			if statusOnly {
				status, err := storage.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				current := status.CurrentVersion
				if current == "" {
					current = "none"
				}
				fmt.Fprintf(c.out, "current version: %s\n", current)
				for _, m := range status.Applied {
					fmt.Fprintf(c.out, "applied  %s  %s  %s\n", m.Version, m.Description, formatStamp(m.AppliedAt))
				}
				for _, m := range status.Pending {
					fmt.Fprintf(c.out, "pending  %s  %s\n", m.Version, m.Description)
				}
				return nil
			}

			applied, err := storage.Migrate(ctx, c.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.out, "database is up to date")
				return nil
			}
			c.printer.Fprintf(c.out, "applied %d migrations: %s\n", len(applied), strings.Join(applied, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report applied and pending migrations without applying them")
	return cmd
}

func (c *cli) freeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free <hours>",
		Short: "Print the earliest free slot of the given length in whole hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("hours must be a whole number: %q", args[0])
			}
			rt, err := c.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			answer, err := rt.schedule.EarliestFreeSlot(cmd.Context(), hours)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, answer)
			return nil
		},
	}
}

func (c *cli) timetableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timetable",
		Short: "Print every registered weekly session and who holds it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			slots := rt.schedule.Timetable(cmd.Context())
			if len(slots) == 0 {
				fmt.Fprintln(c.out, "no sessions registered")
				return nil
			}
			return c.printTimetable(c.out, slots)
		},
	}
}

func (c *cli) printTimetable(w io.Writer, slots []application.TimetableSlot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTUDENTS\tNAMES")
	var weekly time.Duration
	for _, slot := range slots {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", slot.Session, slot.Occupancy, strings.Join(slot.Owners, ", "))
		weekly += slot.Session.Duration() * time.Duration(slot.Occupancy)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printer.Fprintf(w, "%d distinct sessions, %.2f teaching hours a week\n", len(slots), weekly.Hours())
	return nil
}

func (c *cli) upcomingCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List dated lessons for the coming days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			rt, err := c.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			from := c.now()
			until := from.AddDate(0, 0, days)
			lessons, err := rt.schedule.Upcoming(cmd.Context(), application.UpcomingParams{From: &from, Until: &until})
			if err != nil {
				return err
			}
			loc := c.cfg.Location()
			tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			for _, lesson := range lessons {
				fmt.Fprintf(tw, "%s\t%s - %s\t%s\n",
					lesson.Start.In(loc).Format("Mon 02 Jan 2006"),
					lesson.Start.In(loc).Format("15:04"),
					lesson.End.In(loc).Format("15:04"),
					lesson.OwnerName,
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.printer.Fprintf(c.out, "%d lessons in the next %d days\n", len(lessons), days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days to list")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Write the weekly timetable as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = c.cfg.ICSExportPath
			}
			if out == "" {
				return fmt.Errorf("--out is required when ics_export_path is not configured")
			}
			rt, err := c.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			content, err := rt.schedule.Calendar(cmd.Context())
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := io.WriteString(c.out, content)
				return err
			}
			if err := ics.WriteFile(out, content); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "calendar written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `destination file, "-" for standard output`)
	return cmd
}

func (c *cli) hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the argon2id hash of an access key for access_key_hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
				if err != nil {
					return err
				}
				key = strings.TrimRight(string(data), "\r\n")
			}
			encoded, err := application.CreateAccessKeyHash(key, application.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, encoded)
			return nil
		},
	}
}
