package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studyroom/internal/domain"
)

func roomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List rooms and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rooms, err := a.client.ListRooms(context.Background())
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(rooms)
			}
			if len(rooms) == 0 {
				fmt.Println("No rooms found.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tCAPACITY\tSTATUS")
			for _, rm := range rooms {
				fmt.Fprintf(writer, "%d\t%s\t%d\t%s\n", rm.ID, rm.Name, rm.Capacity, rm.Status)
			}
			return writer.Flush()
		},
	}
}

func roomStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room-status <room> <IDLE|OCCUPIED|MAINTENANCE>",
		Short: "Set a room's status (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			status := domain.RoomStatus(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
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
			rm, err := a.manager.SetRoomStatus(ctx, roomID, status)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			if outputJSON {
				return writeJSON(rm)
			}
			fmt.Printf("Room %d is now %s.\n", rm.ID, rm.Status)
			return nil
		},
	}
}
