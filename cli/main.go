// ABOUTME: Entry point for the church administration console CLI
// ABOUTME: Logs in with a bearer token and checks identity and backend reachability from the terminal

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/cmd"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
)

func main() {
	// Backend chatter goes to stderr and stays quiet unless asked for
	level := os.Getenv("CONSOLE_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	slog.SetDefault(logger.New(os.Stderr, level, "text"))

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
