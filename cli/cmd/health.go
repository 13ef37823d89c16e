// ABOUTME: Health command for the console CLI
// ABOUTME: Checks backend connectivity and reports the local login state

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/client"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/styles"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long: `Check connectivity to the church administration backend.

Exit codes:
  0  Backend reachable
  2  Backend unreachable`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// healthReport is what the health command prints.
type healthReport struct {
	Backend  string `json:"backend"`
	Status   string `json:"status"`
	LoggedIn bool   `json:"logged_in"`
	Username string `json:"username,omitempty"`
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	c, err := client.New(GetAPIURL(), 10*time.Second)
	if err != nil {
		writeError(w, err)
		return exitError
	}

	if err := c.Ping(ctx); err != nil {
		writeError(w, err)
		return exitError
	}

	report := healthReport{Backend: c.APIURL(), Status: "ok"}
	if tok, err := getTokenStore().Load(time.Now()); err == nil && tok.APIURL == c.APIURL() {
		report.LoggedIn = true
		if tok.User != nil {
			report.Username = tok.User.Username
		}
	}

	if IsJSONOutput() {
		writeJSON(w, report)
	} else {
		fmt.Fprintln(w, formatHealthHuman(report))
	}
	return exitOK
}

// formatHealthHuman formats health report for human readability
func formatHealthHuman(r healthReport) string {
	session := styles.StatusWarning.Render("not logged in")
	if r.LoggedIn {
		session = "logged in"
		if r.Username != "" {
			session += " as " + r.Username
		}
	}
	return styles.Row("Backend", r.Backend) + "\n" +
		styles.Row("Status", styles.StatusOK.Render(r.Status)) + "\n" +
		styles.Row("Session", session)
}
