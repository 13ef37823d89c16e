// ABOUTME: Logout command for the console CLI
// ABOUTME: Revokes the stored token on the backend best-effort and removes it locally

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
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/tokenstore"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and remove the stored token",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

// runLogout always removes the local token; a backend failure does not block it.
func runLogout(ctx context.Context, w io.Writer) int {
	store := getTokenStore()

	tok, err := store.Load(time.Now())
	if errors.Is(err, tokenstore.ErrNotLoggedIn) {
		writeNotLoggedIn(w)
		return exitOK
	}
	if err != nil {
		writeError(w, err)
		return exitError
	}

	backend := tok.APIURL
	if backend == "" {
		backend = GetAPIURL()
	}
	if c, err := client.New(backend, 0); err == nil {
		c.Logout(ctx, tok.Token)
	}

	if err := store.Delete(); err != nil {
		writeError(w, fmt.Errorf("failed to remove token: %w", err))
		return exitError
	}

	if IsJSONOutput() {
		writeJSON(w, map[string]interface{}{"logged_in": false})
	} else {
		fmt.Fprintln(w, "Logged out")
	}
	return exitOK
}
