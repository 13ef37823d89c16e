// ABOUTME: Whoami command for the console CLI
// ABOUTME: Resolves the identity behind the stored token and forgets tokens the backend rejects

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/client"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/styles"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/tokenstore"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Long: `Show which user the stored token belongs to, as seen by the backend.

Exit codes:
  0  Logged in
  1  Not logged in, or the token was rejected
  2  Backend unreachable or other error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoAmI(ctx, os.Stdout)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoAmI resolves the stored token and returns the exit code
func runWhoAmI(ctx context.Context, w io.Writer) int {
	store := getTokenStore()

	tok, err := store.Load(time.Now())
	if errors.Is(err, tokenstore.ErrNotLoggedIn) {
		writeNotLoggedIn(w)
		return exitAuth
	}
	if err != nil {
		writeError(w, err)
		return exitError
	}

	c, err := client.New(GetAPIURL(), 0)
	if err != nil {
		writeError(w, err)
		return exitError
	}
	if tok.APIURL != "" && tok.APIURL != c.APIURL() {
		writeError(w, fmt.Errorf("stored token belongs to %s, not %s", tok.APIURL, c.APIURL()))
		return exitAuth
	}

	user, err := c.WhoAmI(ctx, tok.Token)
	switch {
	case errors.Is(err, client.ErrTokenRejected):
		if err := store.Delete(); err != nil {
			writeError(w, fmt.Errorf("session expired, but failed to remove token %s: %w", store.Path(), err))
			return exitError
		}
		writeError(w, errors.New("session expired, log in again"))
		return exitAuth
	case err != nil:
		writeError(w, err)
		return exitError
	}

	tok.User = user
	if err := store.Save(tok); err != nil {
		// The identity is still valid; only the cached copy is stale.
		fmt.Fprintln(os.Stderr, styles.StatusWarning.Render("Warning:"), "failed to update stored token:", err)
	}

	if IsJSONOutput() {
		writeJSON(w, userJSON(c.APIURL(), user))
	} else {
		fmt.Fprintln(w, formatUserHuman(c.APIURL(), user))
	}
	return exitOK
}

func writeNotLoggedIn(w io.Writer) {
	if IsJSONOutput() {
		writeJSON(w, map[string]interface{}{"logged_in": false})
		return
	}
	fmt.Fprintln(w, styles.StatusWarning.Render("Not logged in"))
}
