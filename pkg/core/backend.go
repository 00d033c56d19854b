package core

import (
	"context"
	"fmt"
	"strings"
)

// Backend drives one remote work-tracking system.
type Backend interface {
	// Name is the stable key used in Settings.Backend and in the registry.
	Name() string

	// FetchCurrentSprint authenticates with the settings' credentials,
	// resolves the current sprint and returns its work items in backend order.
	FetchCurrentSprint(ctx context.Context, s Settings) (*Sprint, error)

	// DescribeSettings lists the settings this backend needs.
	DescribeSettings() []SettingField
}

// SettingField describes one configuration input for a settings UI.
type SettingField struct {
	Key         string
	Label       string
	Description string
	Placeholder string
	Default     string
	Required    bool
	Secret      bool
	// Kind reported when the field is required but blank.
	Missing Kind
}

// ValidateSettings checks the settings against the backend's field list.
// The first blank required field is reported with the field's Missing kind.
func ValidateSettings(backend string, fields []SettingField, s Settings) error {
	for _, f := range fields {
		if !f.Required || strings.TrimSpace(s.Get(f.Key)) != "" {
			continue
		}
		kind := f.Missing
		if kind == "" {
			kind = KindNotFound
		}
		return &Error{
			Kind:    kind,
			Op:      "validate settings",
			Backend: backend,
			Err:     fmt.Errorf("%s is required", f.Label),
		}
	}
	return nil
}
