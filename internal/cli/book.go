package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studyroom/internal/domain"
)

func bookCmd() *cobra.Command {
	var date string
	var timeValue string
	var duration int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "book <room>",
		Short: "Book a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeValue == "" {
				return fmt.Errorf("--time is required")
			}
			roomID, err := parseRoomID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := resolveDay(date, time.Now(), a.loc)
			if err != nil {
				return err
			}
			start, err := startAt(day, timeValue, a.loc)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := a.refresh(ctx); err != nil {
				return err
			}

			c := candidateFor(a.claims.UserID, roomID, start, duration)
			if dryRun {
				if err := a.manager.ValidateCandidate(c); err != nil {
					return fmt.Errorf("%s", describe(err))
				}
				fmt.Println("Looks bookable. The server has the final say.")
				return nil
			}

			res, err := a.manager.SubmitBooking(ctx, c)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			if outputJSON {
				return writeJSON(res)
			}
			fmt.Printf("Booked room %d, %s %s-%s\n", res.RoomID,
				res.StartTime.In(a.loc).Format("Mon 2 Jan"),
				res.StartTime.In(a.loc).Format("15:04"),
				res.EndTime.In(a.loc).Format("15:04"))
			fmt.Printf("Reservation ID: %d\n", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringVar(&timeValue, "time", "", "Start time (HH:MM)")
	cmd.Flags().IntVar(&duration, "duration", 60, "Duration in minutes (60 or 120)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only check the booking locally")
	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation>",
		Short: "Cancel one of your reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(args[0], func(a *app) domain.CancelRequest {
				return domain.BySelf{UserID: a.claims.UserID}
			})
		},
	}
}

func forceCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force-cancel <reservation>",
		Short: "Cancel any reservation (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(args[0], func(a *app) domain.CancelRequest {
				return domain.ByAdmin{AdminID: a.claims.UserID}
			})
		},
	}
}

func runCancel(arg string, request func(*app) domain.CancelRequest) error {
	id, err := parseReservationID(arg)
	if err != nil {
		return err
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.refresh(ctx); err != nil {
		return err
	}

	res, err := a.manager.CancelBooking(ctx, request(a), id)
	if err != nil {
		return fmt.Errorf("%s", describe(err))
	}
	if outputJSON {
		return writeJSON(res)
	}
	fmt.Printf("Cancelled reservation %d.\n", res.ID)
	return nil
}
