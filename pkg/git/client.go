// Package git shells out to the git binary to version board documents.
package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Client runs git commands in a working directory.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		WorkDir: workDir,
		Logger:  logger,
	}
}

// IsInstalled reports whether a git binary is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return strings.TrimSpace(output), nil
}

// IsRepo reports whether the working directory is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	out, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Init initializes a new git repository. Re-running it is harmless.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Add stages files.
func (c *Client) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, files...)
	_, err := c.Run(ctx, args...)
	return err
}

// Status returns the porcelain status, limited to files when given.
func (c *Client) Status(ctx context.Context, files ...string) (string, error) {
	args := []string{"status", "--porcelain"}
	if len(files) > 0 {
		args = append(append(args, "--"), files...)
	}
	return c.Run(ctx, args...)
}

// CommitFiles stages files and commits only them. It is a no-op when the
// files carry no change. It reports whether a commit was made.
func (c *Client) CommitFiles(ctx context.Context, msg string, files ...string) (bool, error) {
	status, err := c.Status(ctx, files...)
	if err != nil {
		return false, err
	}
	if status == "" {
		return false, nil
	}
	if err := c.Add(ctx, files...); err != nil {
		return false, err
	}
	args := append([]string{"commit", "-m", msg, "--"}, files...)
	if _, err := c.Run(ctx, args...); err != nil {
		return false, err
	}
	return true, nil
}

// LastMessage returns the subject of the last commit touching file.
func (c *Client) LastMessage(ctx context.Context, file string) (string, error) {
	return c.Run(ctx, "log", "-1", "--format=%s", "--", file)
}
