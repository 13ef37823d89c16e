// ABOUTME: Login command for the console CLI
// ABOUTME: Exchanges username and password for a bearer token and stores it locally

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/client"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/styles"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/tokenstore"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

var (
	loginUsername string
	loginPassword string
)

// promptCredentials asks for whatever was not given on the command line.
// Tests replace it to avoid a terminal.
var promptCredentials = func(username string) (string, string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(requireValue("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(requireValue("password")),
		).Title("Login"),
	).WithTheme(styles.FormTheme())

	if err := form.Run(); err != nil {
		return "", "", err
	}
	return username, password, nil
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store a bearer token",
	Long: `Log in to the backend with a username and password. The returned bearer
token is stored in the token file for later commands.

Missing credentials are prompted for interactively.

Exit codes:
  0  Logged in
  1  Credentials rejected
  2  Backend unreachable or other error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogin(ctx, os.Stdout)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}

// runLogin executes the login and returns the exit code
func runLogin(ctx context.Context, w io.Writer) int {
	username, password := loginUsername, loginPassword
	if username == "" || password == "" {
		var err error
		username, password, err = promptCredentials(username)
		if err != nil {
			writeError(w, err)
			return exitError
		}
	}

	c, err := client.New(GetAPIURL(), 0)
	if err != nil {
		writeError(w, err)
		return exitError
	}

	creds, err := c.Login(ctx, username, password)
	if err != nil {
		writeError(w, err)
		if isRejection(err) {
			return exitAuth
		}
		return exitError
	}

	tok := &tokenstore.Token{
		Token:     creds.Token,
		User:      creds.User,
		APIURL:    c.APIURL(),
		ExpiresAt: time.Now().Add(tokenstore.Lifetime),
	}
	if err := getTokenStore().Save(tok); err != nil {
		writeError(w, fmt.Errorf("failed to store token: %w", err))
		return exitError
	}

	if IsJSONOutput() {
		writeJSON(w, userJSON(c.APIURL(), creds.User))
	} else {
		fmt.Fprintln(w, styles.StatusOK.Render("Logged in"))
		fmt.Fprintln(w, formatUserHuman(c.APIURL(), creds.User))
	}
	return exitOK
}

// isRejection reports whether the backend answered a login with a client error.
func isRejection(err error) bool {
	var authErr *services.AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Status >= http.StatusBadRequest && authErr.Status < http.StatusInternalServerError
}
