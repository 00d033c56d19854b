// Package core holds the sprint synchronisation domain: settings, work items,
// the board document model, the backend contract, the reconciliation engine
// and the sync orchestrator.
package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBackend is used when the settings do not name a backend.
	DefaultBackend = "AzureDevops"
	// DefaultCollection is the Azure DevOps collection used when none is configured.
	DefaultCollection = "DefaultCollection"
	// DefaultTimeout bounds every backend HTTP request.
	DefaultTimeout = 30 * time.Second
)

// StatusRule overrides the backend's status vocabulary.
// Match is a glob pattern tested against the native status label.
type StatusRule struct {
	Match  string `mapstructure:"match" yaml:"match" json:"match"`
	Column string `mapstructure:"column" yaml:"column" json:"column"`
}

// Settings is the validated configuration passed into every sync.
// It is treated as immutable for the duration of one sync.
type Settings struct {
	Backend      string        `mapstructure:"backend" yaml:"backend" json:"backend"`
	Instance     string        `mapstructure:"instance" yaml:"instance" json:"instance"`
	Collection   string        `mapstructure:"collection" yaml:"collection,omitempty" json:"collection,omitempty"`
	Project      string        `mapstructure:"project" yaml:"project" json:"project"`
	Team         string        `mapstructure:"team" yaml:"team,omitempty" json:"team,omitempty"`
	Username     string        `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty"`
	AccessToken  string        `mapstructure:"access_token" yaml:"access_token" json:"-"`
	TargetFolder string        `mapstructure:"target_folder" yaml:"target_folder,omitempty" json:"target_folder,omitempty"`
	BoardFile    string        `mapstructure:"board_file" yaml:"board_file,omitempty" json:"board_file,omitempty"`
	StatusMap    []StatusRule  `mapstructure:"status_map" yaml:"status_map,omitempty" json:"status_map,omitempty"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Commit       bool          `mapstructure:"commit" yaml:"commit,omitempty" json:"commit,omitempty"`
}

// DefaultSettings mirrors the defaults a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		Backend:    DefaultBackend,
		Collection: DefaultCollection,
		Timeout:    DefaultTimeout,
	}
}

// Get returns a string field by its settings key. Unknown keys return "".
func (s Settings) Get(key string) string {
	switch key {
	case "backend":
		return s.Backend
	case "instance":
		return s.Instance
	case "collection":
		return s.Collection
	case "project":
		return s.Project
	case "team":
		return s.Team
	case "username":
		return s.Username
	case "access_token":
		return s.AccessToken
	case "target_folder":
		return s.TargetFolder
	case "board_file":
		return s.BoardFile
	}
	return ""
}

// Set assigns a string field by its settings key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "backend":
		s.Backend = value
	case "instance":
		s.Instance = value
	case "collection":
		s.Collection = value
	case "project":
		s.Project = value
	case "team":
		s.Team = value
	case "username":
		s.Username = value
	case "access_token":
		s.AccessToken = value
	case "target_folder":
		s.TargetFolder = value
	case "board_file":
		s.BoardFile = value
	default:
		return fmt.Errorf("unknown settings key %q", key)
	}
	return nil
}

// RequestTimeout returns the configured HTTP timeout or the default.
func (s Settings) RequestTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// ItemRef is the identity of a work item: (backend, project, id).
type ItemRef struct {
	Backend string
	Project string
	ID      string
}

// IsZero reports whether the ref links to nothing.
func (r ItemRef) IsZero() bool {
	return r.Backend == "" && r.Project == "" && r.ID == ""
}

// Valid reports whether every component is non-blank, which is what
// ParseItemRef requires to read the ref back.
func (r ItemRef) Valid() bool {
	return strings.TrimSpace(r.Backend) != "" &&
		strings.TrimSpace(r.Project) != "" &&
		strings.TrimSpace(r.ID) != ""
}

// String renders the ref as backend/project/id with each part path-escaped.
func (r ItemRef) String() string {
	return url.PathEscape(r.Backend) + "/" + url.PathEscape(r.Project) + "/" + url.PathEscape(r.ID)
}

// ParseItemRef is the inverse of ItemRef.String.
func ParseItemRef(s string) (ItemRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ItemRef{}, fmt.Errorf("item ref %q: want backend/project/id", s)
	}
	var out [3]string
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return ItemRef{}, fmt.Errorf("item ref %q: %w", s, err)
		}
		if strings.TrimSpace(v) == "" {
			return ItemRef{}, fmt.Errorf("item ref %q: empty component", s)
		}
		out[i] = v
	}
	return ItemRef{Backend: out[0], Project: out[1], ID: out[2]}, nil
}

// WorkItem is the normalised form of a remote task.
// It is built fresh on every fetch and only persisted as a card reference.
type WorkItem struct {
	ID       string
	Title    string
	Status   string // normalised status, used as the column name
	Native   string // status label as returned by the backend
	Type     string
	Assignee string
	URL      string
	Meta     map[string]string
}

// Sprint is the result of resolving and fetching the current iteration.
type Sprint struct {
	Backend string
	Project string
	Team    string
	Name    string
	Path    string
	Start   time.Time
	Finish  time.Time
	Items   []WorkItem
}

// Ref returns the identity of an item fetched as part of this sprint.
func (s *Sprint) Ref(item WorkItem) ItemRef {
	return ItemRef{Backend: s.Backend, Project: s.Project, ID: item.ID}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
