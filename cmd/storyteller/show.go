package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/persistence"
)

func openSaved() (*persistence.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return persistence.Open(cfg.Storage.DB)
}

// daysAgo renders the gap between two sim-days the way a person would say it.
func daysAgo(day, today int) string {
	if day == today {
		return "today"
	}
	base := time.Unix(0, 0)
	return humanize.RelTime(base.Add(time.Duration(day)*24*time.Hour),
		base.Add(time.Duration(today)*24*time.Hour), "ago", "from now")
}

func printEntry(e journal.Entry) {
	marker := ""
	if e.Fallback {
		marker = " *"
	}
	fmt.Fprintf(os.Stdout, "[%s day] %s%s\n", humanize.Ordinal(e.Day), e.Text, marker)
	if e.PriorChoice != "" && e.Type == journal.TypeChoice {
		fmt.Fprintf(os.Stdout, "    (after choosing %q)\n", e.PriorChoice)
	}
}

func journalCmd() *cobra.Command {
	var limit int
	var day int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the saved story journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSaved()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.Journal(limit)
			if err != nil {
				return err
			}
			shown := 0
			for _, e := range entries {
				if cmd.Flags().Changed("day") && e.Day != day {
					continue
				}
				printEntry(e)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(os.Stdout, "The journal is empty.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the newest N entries")
	cmd.Flags().IntVar(&day, "day", 0, "Show only entries from this sim-day")
	return cmd
}

func nemesesCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "nemeses",
		Short: "List remembered adversaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSaved()
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := db.LoadState()
			if err != nil {
				return err
			}
			shown := 0
			for _, p := range st.Nemeses {
				if p.Retired && !all {
					continue
				}
				status := "active"
				if p.Retired {
					status = "retired: " + p.RetiredReason
				}
				fmt.Fprintf(os.Stdout, "%s of %s (%s)\n", p.Name, p.FactionID, status)
				fmt.Fprintf(os.Stdout, "    %s\n", p.GrudgeReason)
				fmt.Fprintf(os.Stdout, "    first seen %s, last seen %s, %s encounter\n",
					daysAgo(p.CreatedDay, st.Day), daysAgo(p.LastSeenDay, st.Day), humanize.Ordinal(p.EncounterCount))
				if len(p.TopSkills) > 0 {
					fmt.Fprintf(os.Stdout, "    skills: %s\n", strings.Join(p.TopSkills, ", "))
				}
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(os.Stdout, "No nemeses.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include retired nemeses")
	return cmd
}

func eventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List remembered events",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSaved()
			if err != nil {
				return err
			}
			defer db.Close()

			today, err := db.GetMeta("day")
			if err != nil {
				return err
			}
			events, err := db.Events(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(os.Stdout, "No events.")
				return nil
			}
			now, _ := strconv.Atoi(today)
			for _, e := range events {
				fmt.Fprintf(os.Stdout, "%-12s %-11s %.1f  %s\n", daysAgo(e.Day, now), e.Type, e.Significance, e.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Show only the newest N events")
	return cmd
}
