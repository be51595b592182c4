package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"studyroom/internal/availability"
	"studyroom/internal/events"
	"studyroom/internal/logger"
	"studyroom/internal/slot"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <room>",
		Short: "Keep a room's slots on screen, refreshing as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				return err
			}

			updates := make(chan *availability.Snapshot, 1)
			a, err := newApp(offerLatest(updates))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stopSignals()

			stop := a.sync.Start(ctx)
			defer stop()

			if a.cfg.AMQPURL != "" {
				consumer, err := events.NewAMQPConsumer(a.cfg.AMQPURL, a.cfg.EventExchange, "", []string{events.BindAll})
				if err != nil {
					logger.Warn("change events unavailable, polling only", "error", err)
				} else {
					defer consumer.Close()
					msgs, err := consumer.Deliveries(ctx)
					if err != nil {
						return err
					}
					go func() {
						if err := a.sync.ListenHints(ctx, msgs); err != nil && ctx.Err() == nil {
							logger.Warn("change event listener stopped", "error", err)
						}
					}()
				}
			}

			// All drawing happens here. Slot states move with the clock even
			// when nothing is booked.
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			snap := a.sync.Snapshot()
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap = <-updates:
				case <-ticker.C:
				}
				drawRoom(os.Stdout, roomID, snap, time.Now(), a.loc)
			}
		},
	}
}

// offerLatest returns an OnApply hook that hands snapshots to ch without
// blocking the syncer. A snapshot not yet drawn is replaced by the newer one.
func offerLatest(ch chan *availability.Snapshot) func(*availability.Snapshot) {
	return func(snap *availability.Snapshot) {
		for {
			select {
			case ch <- snap:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

func drawRoom(w io.Writer, roomID int, snap *availability.Snapshot, now time.Time, loc *time.Location) {
	states := slot.ResolveDay(slot.NewGrid(now, loc), now, snap.Room(roomID), true)
	fmt.Fprintf(w, "\nRoom %d (%s), synced %s\n", roomID, snap.RoomStatus(roomID),
		snap.SyncedAt.In(loc).Format("15:04:05"))
	fmt.Fprint(w, renderDay(states, loc))
}
