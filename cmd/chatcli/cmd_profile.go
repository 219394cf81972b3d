package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"groupchat/internal/api"
	"groupchat/internal/gate"
	"groupchat/internal/profile"
)

var errNotSignedIn = errors.New("Not signed in. Run `chatcli login <username>` first.")

// requireView runs the navigation guard for v and fails when it redirects,
// which for a terminal means the member has to sign in first.
func requireView(v gate.View) error {
	var redirected gate.View
	g := gate.New(current.sessions, gate.NavigatorFunc(func(to gate.View) { redirected = to }))
	defer g.Close()
	if shown := g.Show(v); shown != v {
		current.log.Debug("view redirected", zap.String("from", string(v)), zap.String("to", string(redirected)))
		return errNotSignedIn
	}
	return nil
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in member's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireView(gate.Profile); err != nil {
			return err
		}
		ed := profile.New(current.client, current.sessions, current.log)
		if err := ed.Load(cmd.Context()); err != nil {
			if api.IsAuth(err) {
				_ = current.sessions.ClearSession()
				return errNotSignedIn
			}
			return errors.New(ed.State().Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Username: "+paint(colorAuthor, ed.State().Username))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <username>",
	Short: "Change your username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireView(gate.Profile); err != nil {
			return err
		}
		ed := profile.New(current.client, current.sessions, current.log)
		if err := ed.Save(cmd.Context(), args[0]); err != nil {
			if api.IsAuth(err) {
				_ = current.sessions.ClearSession()
				return errNotSignedIn
			}
			return errors.New(ed.State().Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), paint(colorOK, ed.State().Success))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
