// Package azuredevops is the Azure DevOps (and Team Foundation Server) driver.
//
// The current sprint is the team iteration whose timeframe is "current". Its
// work items are listed through the iteration work item relations and then
// fetched in batches through the work item API.
package azuredevops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/sprintboard/pkg/adapters/rest"
	"github.com/aretw0/sprintboard/pkg/core"
)

// Name is the registry key of this driver.
const Name = "AzureDevops"

const (
	apiVersion = "7.0"
	batchSize  = 200
)

var fields = []string{
	"System.Id",
	"System.Title",
	"System.State",
	"System.WorkItemType",
	"System.AssignedTo",
	"System.IterationPath",
}

// statusTable folds the default Agile, Scrum, Basic and CMMI process states
// onto a small set of columns.
var statusTable = map[string]string{
	"Proposed":    "To Do",
	"New":         "To Do",
	"To Do":       "To Do",
	"Approved":    "To Do",
	"Active":      "Doing",
	"Committed":   "Doing",
	"In Progress": "Doing",
	"Doing":       "Doing",
	"Resolved":    "Resolved",
	"Done":        "Done",
	"Closed":      "Done",
}

// Backend implements core.Backend for Azure DevOps.
type Backend struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the driver.
type Option func(*Backend)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) { b.httpClient = hc }
}

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns the Azure DevOps driver.
func New(opts ...Option) *Backend {
	b := &Backend{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ core.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return Name }

func (b *Backend) DescribeSettings() []core.SettingField {
	return []core.SettingField{
		{
			Key:         "instance",
			Label:       "Instance",
			Description: "Server URL, e.g. https://dev.azure.com or https://tfs.example.com/tfs",
			Placeholder: "https://dev.azure.com",
			Required:    true,
		},
		{
			Key:         "collection",
			Label:       "Collection",
			Description: "Project collection, or the organization name on Azure DevOps Services",
			Default:     core.DefaultCollection,
		},
		{
			Key:      "project",
			Label:    "Project",
			Required: true,
		},
		{
			Key:         "team",
			Label:       "Team",
			Description: "Team whose iterations are used; blank selects the project's default team",
		},
		{
			Key:         "username",
			Label:       "Username",
			Description: "Optional; a personal access token works with any username",
		},
		{
			Key:         "access_token",
			Label:       "Personal access token",
			Description: "Needs the Work Items (read) scope",
			Required:    true,
			Secret:      true,
			Missing:     core.KindAuthentication,
		},
	}
}

// FetchCurrentSprint resolves the team's current iteration and returns its
// work items in the order the iteration lists them.
func (b *Backend) FetchCurrentSprint(ctx context.Context, s core.Settings) (*core.Sprint, error) {
	base := strings.TrimRight(strings.TrimSpace(s.Instance), "/")
	if c := strings.Trim(strings.TrimSpace(s.Collection), "/"); c != "" {
		base += "/" + url.PathEscape(c)
	}
	opts := []rest.Option{rest.WithLogger(b.logger)}
	if b.httpClient != nil {
		opts = append(opts, rest.WithHTTPClient(b.httpClient))
	}
	opts = append(opts, rest.WithTimeout(s.RequestTimeout()))

	client, err := rest.New(Name, base, rest.BasicAuth{Username: s.Username, Password: s.AccessToken}, opts...)
	if err != nil {
		return nil, err
	}

	project := url.PathEscape(strings.TrimSpace(s.Project))
	scope := []string{project}
	if team := strings.TrimSpace(s.Team); team != "" {
		scope = append(scope, url.PathEscape(team))
	}

	iteration, err := b.currentIteration(ctx, client, scope)
	if err != nil {
		return nil, err
	}

	ids, err := b.iterationItems(ctx, client, scope, iteration.ID)
	if err != nil {
		return nil, err
	}

	mapper := core.NewStatusMapper(s.StatusMap, statusTable)
	sprint := &core.Sprint{
		Backend: Name,
		Project: s.Project,
		Team:    s.Team,
		Name:    iteration.Name,
		Path:    iteration.Path,
		Start:   parseTime(iteration.Attributes.StartDate),
		Finish:  parseTime(iteration.Attributes.FinishDate),
	}

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		items, err := b.workItems(ctx, client, project, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, id := range ids[start:end] {
			wi, ok := items[id]
			if !ok {
				continue // deleted or not visible to the token
			}
			sprint.Items = append(sprint.Items, wi.toItem(client.Base(), project, mapper))
		}
	}

	b.logger.Debug("fetched current sprint", "backend", Name, "sprint", sprint.Name, "items", len(sprint.Items))
	return sprint, nil
}

type iteration struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Attributes struct {
		StartDate  string `json:"startDate"`
		FinishDate string `json:"finishDate"`
		TimeFrame  string `json:"timeFrame"`
	} `json:"attributes"`
}

func (b *Backend) currentIteration(ctx context.Context, c *rest.Client, scope []string) (*iteration, error) {
	var resp struct {
		Count int         `json:"count"`
		Value []iteration `json:"value"`
	}
	q := url.Values{"$timeframe": {"current"}, "api-version": {apiVersion}}
	elems := append(append([]string{}, scope...), "_apis/work/teamsettings/iterations")
	u := c.Endpoint(q, elems...)
	if err := c.GetJSON(ctx, "fetch current iteration", u, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, &core.Error{
			Kind:    core.KindNotFound,
			Op:      "fetch current iteration",
			Backend: Name,
			Err:     fmt.Errorf("no current iteration is set for the team"),
		}
	}
	it := resp.Value[0]
	if it.ID == "" {
		return nil, &core.Error{
			Kind:    core.KindBackendResponse,
			Op:      "fetch current iteration",
			Backend: Name,
			Err:     fmt.Errorf("iteration %q has no id", it.Name),
		}
	}
	return &it, nil
}

func (b *Backend) iterationItems(ctx context.Context, c *rest.Client, scope []string, iterationID string) ([]int, error) {
	var resp struct {
		Relations *[]struct {
			Rel    *string `json:"rel"`
			Target *struct {
				ID int `json:"id"`
			} `json:"target"`
		} `json:"workItemRelations"`
	}
	elems := append(append([]string{}, scope...), "_apis/work/teamsettings/iterations", url.PathEscape(iterationID), "workitems")
	u := c.Endpoint(url.Values{"api-version": {apiVersion}}, elems...)
	if err := c.GetJSON(ctx, "fetch iteration work items", u, &resp); err != nil {
		return nil, err
	}
	if resp.Relations == nil {
		return nil, responseError("fetch iteration work items", "response has no workItemRelations list")
	}

	seen := make(map[int]bool, len(*resp.Relations))
	var ids []int
	for _, rel := range *resp.Relations {
		if rel.Target == nil || rel.Target.ID <= 0 {
			return nil, responseError("fetch iteration work items", "work item relation without a target id")
		}
		if seen[rel.Target.ID] {
			continue
		}
		seen[rel.Target.ID] = true
		ids = append(ids, rel.Target.ID)
	}
	return ids, nil
}

type workItem struct {
	ID     int                        `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
}

func (b *Backend) workItems(ctx context.Context, c *rest.Client, project string, ids []int) (map[int]workItem, error) {
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = strconv.Itoa(id)
	}
	q := url.Values{
		"ids":         {strings.Join(list, ",")},
		"fields":      {strings.Join(fields, ",")},
		"errorPolicy": {"omit"},
		"api-version": {apiVersion},
	}
	var resp struct {
		Value *[]*workItem `json:"value"`
	}
	u := c.Endpoint(q, project, "_apis/wit/workitems")
	if err := c.GetJSON(ctx, "fetch work items", u, &resp); err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return nil, responseError("fetch work items", "response has no value list")
	}
	out := make(map[int]workItem, len(*resp.Value))
	for _, wi := range *resp.Value {
		if wi == nil {
			continue
		}
		if wi.ID <= 0 {
			return nil, responseError("fetch work items", "work item without an id")
		}
		out[wi.ID] = *wi
	}
	return out, nil
}

func responseError(op, msg string) error {
	return &core.Error{Kind: core.KindBackendResponse, Op: op, Backend: Name, Err: errors.New(msg)}
}

func (wi workItem) toItem(base, project string, mapper *core.StatusMapper) core.WorkItem {
	id := strconv.Itoa(wi.ID)
	native := wi.text("System.State")
	item := core.WorkItem{
		ID:       id,
		Title:    wi.text("System.Title"),
		Native:   native,
		Status:   mapper.Map(native),
		Type:     wi.text("System.WorkItemType"),
		Assignee: wi.identity("System.AssignedTo"),
		URL:      base + "/" + project + "/_workitems/edit/" + id,
	}
	if path := wi.text("System.IterationPath"); path != "" {
		item.Meta = map[string]string{"iteration_path": path}
	}
	return item
}

func (wi workItem) text(field string) string {
	raw, ok := wi.Fields[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	return s
}

// identity reads an identity field, which newer servers send as an object
// and older ones as "Display Name <domain\user>".
func (wi workItem) identity(field string) string {
	raw, ok := wi.Fields[field]
	if !ok {
		return ""
	}
	var ref struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil && ref.DisplayName != "" {
		return ref.DisplayName
	}
	s := wi.text(field)
	if i := strings.Index(s, " <"); i > 0 {
		return s[:i]
	}
	return s
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
