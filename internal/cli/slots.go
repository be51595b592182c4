package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func slotsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "slots <room>",
		Short: "Show a room's slots for a day",
		Long:  "Each line is one hour, each mark a 10 minute slot: '.' available, '#' reserved, '-' past.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.refresh(context.Background()); err != nil {
				return err
			}

			states, err := a.manager.SlotStates(roomID, day)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(states)
			}

			fmt.Printf("Room %d on %s (%s)\n", roomID, day, a.sync.Snapshot().RoomStatus(roomID))
			fmt.Print(renderDay(states, a.loc))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, today or tomorrow)")
	return cmd
}

func optionsCmd() *cobra.Command {
	var date string
	var start string

	cmd := &cobra.Command{
		Use:   "options <room>",
		Short: "List bookable start times, or end times for --start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.refresh(context.Background()); err != nil {
				return err
			}

			var options []time.Time
			if start == "" {
				options, err = a.manager.StartOptions(roomID, day)
				if err != nil {
					return err
				}
			} else {
				from, err := startAt(day, start, a.loc)
				if err != nil {
					return err
				}
				options = a.manager.EndOptions(roomID, from)
			}

			if outputJSON {
				return writeJSON(options)
			}
			if len(options) == 0 {
				fmt.Println("Nothing available.")
				return nil
			}
			fmt.Println(formatTimes(options, a.loc))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringVar(&start, "start", "", "Start time (HH:MM) to list end times for")
	return cmd
}
