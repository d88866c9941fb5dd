package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(conversationsCmd, messagesCmd, searchCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()

		convs, err := e.api.ListConversations(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(convs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tCREATED")
		for _, c := range convs {
			kind := "dm"
			if c.IsGroup {
				kind = "group"
			}
			created := ""
			if !c.CreatedAt.IsZero() {
				created = c.CreatedAt.Local().Format("2006-01-02 15:04")
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.DisplayName(), kind, created)
		}
		return w.Flush()
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Print the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()

		msgs, err := e.api.ListMessages(ctx, id)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(msgs)
		}

		tracker := readstate.NewTracker(0)
		if me, err := e.api.Me(ctx); err == nil {
			tracker.SetSelf(me.ID)
		}
		for _, entry := range tracker.Annotate(msgs) {
			fmt.Println(formatEntry(entry))
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()

		users, err := e.api.SearchUsers(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(users)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL")
		for _, u := range users {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.Email)
		}
		return w.Flush()
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id %q", s)
	}
	return id, nil
}

// formatEntry renders one message on a single line.
func formatEntry(e readstate.Entry) string {
	m := e.Message
	sender := fmt.Sprintf("user %d", m.SenderID)
	switch {
	case e.Own:
		sender = "you"
	case m.SenderID == 0:
		sender = "system"
	}
	line := fmt.Sprintf("[%s] #%d %s: %s", m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.ID, sender, m.Content)
	if m.Attachment != nil {
		line += fmt.Sprintf(" (file: %s %s)", m.Attachment.Name, m.Attachment.URL)
	}
	if glyph := e.Mark.Glyph(); glyph != "" {
		line += " " + glyph
	}
	return line
}
