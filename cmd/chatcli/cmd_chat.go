package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"groupchat/internal/api"
	"groupchat/internal/chat"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Print the chat log as a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.sessions.Snapshot().Authenticated() {
			return errNotSignedIn
		}
		msgs, err := current.client.Messages(cmd.Context())
		if err != nil {
			return authOr(err, chat.LoadErrorText)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), paint(colorMuted, chat.EmptyText))
			return nil
		}
		renderTable(cmd.OutOrStdout(), msgs)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Post a message to the chat",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.sessions.Snapshot().Authenticated() {
			return errNotSignedIn
		}
		content := strings.Join(args, " ")
		if strings.TrimSpace(content) == "" {
			return nil
		}
		msg, err := current.client.SendMessage(cmd.Context(), content)
		if err != nil {
			return authOr(err, chat.SendErrorText)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatMessage(msg))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the chat live; lines typed on stdin are sent as messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.sessions.Snapshot().Authenticated() {
			return errNotSignedIn
		}
		ctx := cmd.Context()

		printer := &feedPrinter{w: cmd.OutOrStdout()}
		syncer := chat.New(current.client,
			chat.WithInterval(current.cfg.PollInterval),
			chat.WithLogger(current.log),
			chat.WithOnChange(printer.print),
		)
		syncer.Bind(current.sessions)
		defer syncer.Close()

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					<-ctx.Done()
					return nil
				}
				err := syncer.Send(ctx, line)
				if errors.Is(err, chat.ErrInactive) {
					return errNotSignedIn
				}
				if api.IsAuth(err) {
					_ = current.sessions.ClearSession()
					return errNotSignedIn
				}
				// Other send failures are already shown through the feed.
			}
		}
	},
}

// authOr maps a rejected token to the sign-in hint and anything else to
// the message for the user.
func authOr(err error, fallback string) error {
	if api.IsAuth(err) {
		_ = current.sessions.ClearSession()
		return errNotSignedIn
	}
	return errors.New(api.Message(err, fallback))
}

func init() {
	rootCmd.AddCommand(messagesCmd, sendCmd, watchCmd)
}
