package platform

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/sprintboard/pkg/adapters/azuredevops"
	"github.com/aretw0/sprintboard/pkg/adapters/jira"
	"github.com/aretw0/sprintboard/pkg/core"
)

// DefaultRegistry returns a registry holding every built-in driver.
// A nil client or logger leaves the driver defaults in place.
func DefaultRegistry(hc *http.Client, logger *slog.Logger) *core.Registry {
	var (
		adoOpts  []azuredevops.Option
		jiraOpts []jira.Option
	)
	if hc != nil {
		adoOpts = append(adoOpts, azuredevops.WithHTTPClient(hc))
		jiraOpts = append(jiraOpts, jira.WithHTTPClient(hc))
	}
	if logger != nil {
		adoOpts = append(adoOpts, azuredevops.WithLogger(logger))
		jiraOpts = append(jiraOpts, jira.WithLogger(logger))
	}
	return core.NewRegistry(
		azuredevops.New(adoOpts...),
		jira.New(jiraOpts...),
	)
}
