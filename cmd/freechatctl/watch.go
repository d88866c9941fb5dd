package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/freechat/internal/app"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/live"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/matheus3301/freechat/internal/status"
	intsync "github.com/matheus3301/freechat/internal/sync"
	"github.com/spf13/cobra"
)

var watchMetricsAddr string

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <conversation-id>",
	Short: "Follow a conversation live until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		configure := func(p *app.Params) {
			if watchMetricsAddr != "" {
				p.Config.Metrics.Addr = watchMetricsAddr
			}
		}

		return withSession(cmd.Context(), configure, func(ctx context.Context, sess *client.Session, b *bus.Bus) error {
			events, unsubscribe := b.Subscribe("", 256)
			defer unsubscribe()

			if err := waitDirectory(ctx, sess); err != nil {
				return err
			}
			if err := sess.Select(id); err != nil {
				return err
			}

			w := &watcher{marks: make(map[int64]readstate.Mark)}
			w.refresh(sess)
			for {
				select {
				case <-ctx.Done():
					return nil
				case evt, ok := <-events:
					if !ok {
						return nil
					}
					if err := w.handle(evt); err != nil {
						return err
					}
					w.refresh(sess)
				}
			}
		})
	},
}

// watcher prints log entries once and reports read mark upgrades.
type watcher struct {
	marks map[int64]readstate.Mark
}

func (w *watcher) refresh(sess *client.Session) {
	v, err := sess.View()
	if err != nil {
		return
	}
	for _, e := range v.Entries {
		prev, seen := w.marks[e.Message.ID]
		w.marks[e.Message.ID] = e.Mark
		switch {
		case !seen && jsonFlag:
			_ = printJSON(e)
		case !seen:
			fmt.Println(formatEntry(e))
		case prev != e.Mark && !jsonFlag:
			fmt.Printf("#%d is now %s %s\n", e.Message.ID, e.Mark, e.Mark.Glyph())
		}
	}
}

func (w *watcher) handle(evt bus.Event) error {
	switch p := evt.Payload.(type) {
	case status.StatusChange:
		if evt.Kind == bus.SyncStateChanged {
			warnf("-- %s", p.To)
		}
	case intsync.Notice:
		switch p.Event.Kind {
		case live.KindSystem:
			warnf("-- %s", p.Event.Text)
		case live.KindTyping:
			warnf("-- user %d is typing", p.Event.UserID)
		case live.KindPresence:
			state := "offline"
			if p.Event.Online {
				state = "online"
			}
			warnf("-- user %d is %s", p.Event.UserID, state)
		}
	case intsync.Failure:
		warnf("-- sync failed: %v", p.Err)
	case error:
		if evt.Kind == bus.SessionHalted {
			return p
		}
	}
	return nil
}
