package sprintboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/sprintboard/internal/platform"
	"github.com/aretw0/sprintboard/pkg/core"
)

// --- Types ---

// Service is the sync orchestrator.
type Service = core.Service

// Settings configures one sync.
type Settings = core.Settings

// Report describes the outcome of one sync.
type Report = core.Report

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// WithLogger sets the logger for the service, its store and the drivers.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom document store.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithRegistry replaces the built-in backend registry.
func WithRegistry(registry *core.Registry) Option {
	return platform.WithRegistry(registry)
}

// WithHTTPClient sets the HTTP client used by the built-in drivers.
func WithHTTPClient(hc *http.Client) Option {
	return platform.WithHTTPClient(hc)
}

// WithReadOnly opens the vault without write access.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist requires the vault directory to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLockTimeout bounds how long a sync waits for a board held by another process.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithForceTemp forces the vault into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the `go run`/`go test` sandbox. Enabled by default.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithS3Endpoint points an s3:// vault at an S3-compatible server.
func WithS3Endpoint(endpoint string, pathStyle bool) Option {
	return platform.WithS3Endpoint(endpoint, pathStyle)
}

// WithS3Region sets the S3 signing region.
func WithS3Region(region string) Option {
	return platform.WithS3Region(region)
}

// WithS3Credentials sets static S3 credentials.
func WithS3Credentials(accessKey, secretKey string) Option {
	return platform.WithS3Credentials(accessKey, secretKey)
}

// --- Factory ---

// New creates a sync service over a vault directory or s3:// URI.
func New(vault string, opts ...Option) (*core.Service, error) {
	return platform.New(vault, opts...)
}

// Open returns the document store behind a vault.
func Open(vault string, opts ...Option) (core.Store, error) {
	return platform.Open(vault, opts...)
}

// DefaultRegistry returns a registry holding the Azure DevOps and Jira drivers.
func DefaultRegistry(hc *http.Client, logger *slog.Logger) *core.Registry {
	return platform.DefaultRegistry(hc, logger)
}

// --- Operations ---

// Sync runs a single sync of the current sprint into the vault.
func Sync(ctx context.Context, vault string, settings core.Settings, opts ...Option) (*core.Report, error) {
	svc, err := New(vault, opts...)
	if err != nil {
		return nil, err
	}
	return svc.RunSync(ctx, settings)
}

// --- Safety & Utils ---

// FindRoot walks up from startDir to the nearest vault marker.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// IsDevRun reports whether the process runs via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// ResolveVaultPath applies the development sandbox to a vault path.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}
