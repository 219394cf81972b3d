package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"groupchat/internal/account"
	"groupchat/internal/api"
)

var passwordFlag string

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a member account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		member, err := current.accounts.Register(cmd.Context(), args[0], password)
		if err != nil {
			return fmt.Errorf("%s", api.Message(err, account.RegisterFailedText))
		}
		fmt.Fprintln(cmd.OutOrStdout(), paint(colorOK, "Registered and signed in as "+member.Username+"."))
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in to the chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		member, err := current.accounts.Login(cmd.Context(), args[0], password)
		if err != nil {
			return fmt.Errorf("%s", api.Message(err, account.LoginFailedText))
		}
		fmt.Fprintln(cmd.OutOrStdout(), paint(colorOK, "Signed in as "+member.Username+"."))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.accounts.Logout(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in member, checking the token with the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.sessions.Snapshot().Authenticated() {
			return errNotSignedIn
		}
		member, err := current.accounts.Verify(cmd.Context())
		if api.IsAuth(err) {
			return errNotSignedIn
		}
		if err != nil {
			return fmt.Errorf("%s", api.Message(err, "Could not reach the chat service."))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, joined %s)\n",
			paint(colorAuthor, member.Username), member.ID, member.CreatedAt.Local().Format(timeLayout))
		return nil
	},
}

// readPassword takes --password, or one line from stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&passwordFlag, "password", "p", "", "password (read from stdin when omitted)")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}
