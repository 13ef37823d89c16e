// ABOUTME: Root command for the console CLI
// ABOUTME: Handles global flags, the backend URL and the token file location

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/tokenstore"
)

var (
	apiURL     string
	tokenFile  string
	jsonOutput bool
)

const defaultAPIURL = "http://localhost:8000"

// Exit codes shared by every command.
const (
	exitOK    = 0
	exitAuth  = 1 // not logged in, rejected credentials
	exitError = 2 // backend unreachable, bad input, local I/O failure
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "CLI for the church administration console",
	Long: `console is a command-line companion for the church administration backend.

It logs in with a bearer token, shows who the stored token belongs to, and
checks that the backend is reachable.

Environment Variables:
  CONSOLE_API_URL     Backend API URL (default: http://localhost:8000)
  CONSOLE_TOKEN_FILE  Token file (default: $XDG_CONFIG_HOME/frontend-gereja/token.json)`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides CONSOLE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Token file (overrides CONSOLE_TOKEN_FILE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("CONSOLE_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

func getTokenStore() *tokenstore.Store {
	if tokenFile != "" {
		return tokenstore.New(tokenFile)
	}
	return tokenstore.New(tokenstore.DefaultPath())
}
