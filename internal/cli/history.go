package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studyroom/internal/config"
	"studyroom/internal/history"
)

func historyCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List bookings made from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			hist, err := history.Open(cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer hist.Close()

			entries, err := hist.List(context.Background(), history.Filter{Upcoming: !all, Now: time.Now()})
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No bookings found.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tROOM\tDATE\tTIME\tSTATUS")
			for _, e := range entries {
				status := "RESERVED"
				if e.Cancelled() {
					status = "CANCELLED"
				}
				fmt.Fprintf(writer, "%d\t%d\t%s\t%s-%s\t%s\n", e.ReservationID, e.RoomID,
					e.Start.In(loc).Format("2006-01-02"),
					e.Start.In(loc).Format("15:04"),
					e.End.In(loc).Format("15:04"),
					status)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include past and cancelled bookings")
	return cmd
}

func mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your upcoming reservations as the server sees them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rs, err := a.client.ListMine(context.Background())
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			if outputJSON {
				return writeJSON(rs)
			}
			if len(rs) == 0 {
				fmt.Println("No upcoming reservations.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tROOM\tDATE\tTIME\tSTATUS")
			for _, r := range rs {
				fmt.Fprintf(writer, "%d\t%d\t%s\t%s-%s\t%s\n", r.ID, r.RoomID,
					r.StartTime.In(a.loc).Format("2006-01-02"),
					r.StartTime.In(a.loc).Format("15:04"),
					r.EndTime.In(a.loc).Format("15:04"),
					r.Status)
			}
			return writer.Flush()
		},
	}
}
