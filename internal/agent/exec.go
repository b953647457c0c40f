package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
)

// runCommand executes one command and captures it as a structured log.
// redact values are stripped from the recorded command line so access
// tokens never land in logs.
func runCommand(ctx context.Context, stage, dir string, redact []string, name string, args ...string) api.Log {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now().UTC()
	err := cmd.Run()
	ended := time.Now().UTC()

	display := name + " " + strings.Join(args, " ")
	for _, secret := range redact {
		if secret != "" {
			display = strings.ReplaceAll(display, secret, "<redacted>")
		}
	}

	log := api.Log{
		Stage:     stage,
		Command:   display,
		Stdout:    strings.TrimSpace(stdout.String()),
		Stderr:    strings.TrimSpace(stderr.String()),
		Success:   err == nil,
		StartedAt: started,
		EndedAt:   ended,
	}
	if err != nil && log.Stderr == "" {
		log.Stderr = err.Error()
	}
	return log
}

// runShell executes a user hook through the shell, for on_clone/on_pull.
func runShell(ctx context.Context, stage, dir, script string) api.Log {
	return runCommand(ctx, stage, dir, nil, "sh", "-c", script)
}
