// ABOUTME: Test helpers for config tests
// ABOUTME: Provides utilities for environment variable management

package config

import (
	"os"
	"strings"
	"testing"
)

// withCleanEnv clears the environment, sets the given vars, and returns a
// cleanup function that restores the original env. ENV_FILE points at a path
// that does not exist so a developer's .env never leaks into tests.
func withCleanEnv(t *testing.T, vars map[string]string) func() {
	t.Helper()

	saved := os.Environ()
	os.Clearenv()
	os.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		os.Clearenv()
		for _, kv := range saved {
			if i := strings.IndexByte(kv, '='); i > 0 {
				os.Setenv(kv[:i], kv[i+1:])
			}
		}
	}
}
