package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// DetachedCommand builds the self-exec command that runs the scheduler in the
// background: `<executable> run --config <path>`.
func DetachedCommand(executable, configPath string) *exec.Cmd {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(executable, args...)

	// Detach from the parent (new session / process group).
	cmd.SysProcAttr = detachedSysProcAttr()

	// No stdin/stdout/stderr; the daemon logs to its own file.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd
}

// StartDetached spawns the scheduler as a background process and returns its PID.
func StartDetached(configPath string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}
	return StartDetachedWithPath(executable, configPath)
}

// StartDetachedWithPath spawns executable as a detached scheduler process.
func StartDetachedWithPath(executable, configPath string) (int, error) {
	cmd := DetachedCommand(executable, configPath)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	// The child outlives us; release our handle without waiting.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release daemon process: %w", err)
	}
	return pid, nil
}
