package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/compose"
	"github.com/spf13/cobra"
)

var sendFile string

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "attach a local file")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> [text...]",
	Short: "Send a message, optionally with an attachment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if strings.TrimSpace(text) == "" && sendFile == "" {
			return errors.New("nothing to send: pass text or --file")
		}

		return withSession(cmd.Context(), nil, func(ctx context.Context, sess *client.Session, b *bus.Bus) error {
			ctx, cancel := context.WithTimeout(ctx, timeoutFlag)
			defer cancel()

			if err := waitDirectory(ctx, sess); err != nil {
				return err
			}
			if err := sess.Select(id); err != nil {
				return err
			}

			events, unsubscribe := b.Subscribe("compose.", 16)
			defer unsubscribe()

			if err := sess.SetDraft(text); err != nil {
				return err
			}
			if sendFile != "" {
				if err := sess.Attach(sendFile); err != nil {
					return err
				}
			}
			if err := sess.Send(); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return fmt.Errorf("waiting for send: %w", ctx.Err())
				case evt, ok := <-events:
					if !ok {
						return errors.New("engine stopped before the send completed")
					}
					switch p := evt.Payload.(type) {
					case compose.SendResult:
						if jsonFlag {
							return printJSON(p.Message)
						}
						fmt.Printf("Sent message #%d to conversation %d\n", p.Message.ID, id)
						return nil
					case compose.SendFailure:
						return fmt.Errorf("send failed while %s: %w", strings.ToLower(string(p.Stage)), p.Err)
					}
				}
			}
		})
	},
}

// waitDirectory blocks until the first conversation list load settled.
func waitDirectory(ctx context.Context, sess *client.Session) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		v, err := sess.View()
		if err != nil {
			return err
		}
		if v.Halted {
			return fmt.Errorf("session halted while loading conversations")
		}
		if !v.DirectoryLoading {
			if v.DirectoryErr != nil {
				return v.DirectoryErr
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("loading conversations: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
