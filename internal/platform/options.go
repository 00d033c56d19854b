package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/sprintboard/pkg/core"
)

// options holds the internal configuration for the sync service.
type options struct {
	store       core.Store
	registry    *core.Registry
	logger      *slog.Logger
	httpClient  *http.Client
	readOnly    bool
	mustExist   bool
	devSafety   bool
	forceTemp   bool
	lockTimeout time.Duration
	s3          s3Options
}

type s3Options struct {
	endpoint  string
	region    string
	accessKey string
	secretKey string
	pathStyle bool
}

// Option defines a functional option for configuring the service.
type Option func(*options)

func defaultOptions() *options {
	return &options{devSafety: true}
}

// WithLogger sets the logger for the service, its store and the drivers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom document store (e.g. a mock).
// If provided, the vault argument is only used for logging.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRegistry replaces the default backend registry.
func WithRegistry(registry *core.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithHTTPClient sets the HTTP client the default drivers use.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithReadOnly opens the vault without write access. Syncs fail on write;
// previews and board listings still work.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist requires the vault directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithLockTimeout bounds how long a sync waits for another process holding
// the board's lock file.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithForceTemp forces the vault into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`: by default the vault is re-rooted into a temporary directory
// so development runs never touch a real board.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithS3Endpoint points the S3 store at an S3-compatible server such as MinIO.
func WithS3Endpoint(endpoint string, pathStyle bool) Option {
	return func(o *options) {
		o.s3.endpoint = endpoint
		o.s3.pathStyle = pathStyle
	}
}

// WithS3Region sets the S3 signing region.
func WithS3Region(region string) Option {
	return func(o *options) {
		o.s3.region = region
	}
}

// WithS3Credentials sets static S3 credentials instead of the default chain.
func WithS3Credentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.s3.accessKey = accessKey
		o.s3.secretKey = secretKey
	}
}
