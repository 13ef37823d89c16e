// ABOUTME: Output helpers shared by CLI commands
// ABOUTME: Renders either indented JSON or styled human-readable lines

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cli/internal/styles"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

func writeJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

func writeError(w io.Writer, err error) {
	if IsJSONOutput() {
		writeJSON(w, map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintln(w, styles.StatusCritical.Render("Error:"), err)
}

// formatUserHuman renders an identity as aligned rows.
func formatUserHuman(backend string, user *models.User) string {
	rows := []string{
		styles.Row("Backend", backend),
		styles.Row("User", user.Username),
		styles.Row("Role", fmt.Sprintf("%d", int(user.RoleID))),
	}
	if user.Name != "" {
		rows = append(rows, styles.Row("Name", user.Name))
	}
	status := styles.StatusOK.Render("active")
	if !user.IsActive() {
		status = styles.StatusWarning.Render("inactive")
	}
	rows = append(rows, styles.Row("Status", status))
	return strings.Join(rows, "\n")
}

func userJSON(backend string, user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"backend":  backend,
		"id":       int(user.ID),
		"username": user.Username,
		"role_id":  int(user.RoleID),
		"active":   user.IsActive(),
	}
}
