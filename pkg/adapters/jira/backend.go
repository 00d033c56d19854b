// Package jira is the Jira Software driver, built on the Agile REST API.
//
// The current sprint is the active sprint of the project's board (the board
// named after the team when one is set). When several sprints are active the
// one whose dates contain now wins, otherwise the most recently started.
package jira

import (
	"context"
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
const Name = "Jira"

const pageSize = 100

// Backend implements core.Backend for Jira.
type Backend struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
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

// WithClock overrides the time source used to pick among active sprints.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// New returns the Jira driver.
func New(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
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
			Description: "Site URL, e.g. https://your-domain.atlassian.net",
			Placeholder: "https://your-domain.atlassian.net",
			Required:    true,
		},
		{
			Key:         "project",
			Label:       "Project key",
			Placeholder: "PRJ",
			Required:    true,
		},
		{
			Key:         "team",
			Label:       "Board",
			Description: "Board name; blank picks the project's first scrum board",
		},
		{
			Key:         "username",
			Label:       "Email",
			Description: "Account email for Jira Cloud API tokens; blank sends the token as a bearer PAT",
		},
		{
			Key:      "access_token",
			Label:    "API token",
			Required: true,
			Secret:   true,
			Missing:  core.KindAuthentication,
		},
	}
}

// FetchCurrentSprint resolves the board, its active sprint and the sprint's issues.
func (b *Backend) FetchCurrentSprint(ctx context.Context, s core.Settings) (*core.Sprint, error) {
	var auth rest.Auth = rest.BearerToken(s.AccessToken)
	if strings.TrimSpace(s.Username) != "" {
		auth = rest.BasicAuth{Username: s.Username, Password: s.AccessToken}
	}
	opts := []rest.Option{rest.WithLogger(b.logger)}
	if b.httpClient != nil {
		opts = append(opts, rest.WithHTTPClient(b.httpClient))
	}
	opts = append(opts, rest.WithTimeout(s.RequestTimeout()))

	client, err := rest.New(Name, s.Instance, auth, opts...)
	if err != nil {
		return nil, err
	}

	boardID, err := b.findBoard(ctx, client, strings.TrimSpace(s.Project), strings.TrimSpace(s.Team))
	if err != nil {
		return nil, err
	}

	sp, err := b.activeSprint(ctx, client, boardID)
	if err != nil {
		return nil, err
	}

	issues, err := b.sprintIssues(ctx, client, sp.ID)
	if err != nil {
		return nil, err
	}

	mapper := core.NewStatusMapper(s.StatusMap, nil)
	sprint := &core.Sprint{
		Backend: Name,
		Project: s.Project,
		Team:    s.Team,
		Name:    sp.Name,
		Start:   parseTime(sp.StartDate),
		Finish:  parseTime(sp.EndDate),
	}
	for _, is := range issues {
		item, err := is.toItem(client.Base(), mapper)
		if err != nil {
			return nil, err
		}
		sprint.Items = append(sprint.Items, item)
	}

	b.logger.Debug("fetched current sprint", "backend", Name, "sprint", sprint.Name, "items", len(sprint.Items))
	return sprint, nil
}

type board struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (b *Backend) findBoard(ctx context.Context, c *rest.Client, project, team string) (int, error) {
	q := url.Values{"projectKeyOrId": {project}}
	if team != "" {
		q.Set("name", team)
	}
	var resp struct {
		Values []board `json:"values"`
	}
	if err := c.GetJSON(ctx, "find board", c.Endpoint(q, "rest/agile/1.0/board"), &resp); err != nil {
		return 0, err
	}

	var chosen *board
	for i := range resp.Values {
		bd := &resp.Values[i]
		if team != "" && !strings.EqualFold(bd.Name, team) {
			continue
		}
		if chosen == nil || (chosen.Type != "scrum" && bd.Type == "scrum") {
			chosen = bd
		}
	}
	if chosen == nil && team != "" && len(resp.Values) > 0 {
		chosen = &resp.Values[0]
	}
	if chosen == nil {
		return 0, &core.Error{
			Kind:    core.KindNotFound,
			Op:      "find board",
			Backend: Name,
			Err:     fmt.Errorf("no board found for project %q", project),
		}
	}
	return chosen.ID, nil
}

type sprintJSON struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (b *Backend) activeSprint(ctx context.Context, c *rest.Client, boardID int) (*sprintJSON, error) {
	var resp struct {
		Values []sprintJSON `json:"values"`
	}
	u := c.Endpoint(url.Values{"state": {"active"}}, "rest/agile/1.0/board", strconv.Itoa(boardID), "sprint")
	if err := c.GetJSON(ctx, "find active sprint", u, &resp); err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, &core.Error{
			Kind:    core.KindNotFound,
			Op:      "find active sprint",
			Backend: Name,
			Err:     fmt.Errorf("board %d has no active sprint", boardID),
		}
	}
	return pickSprint(resp.Values, b.now()), nil
}

// pickSprint prefers the sprint whose dates contain now, then the latest start.
func pickSprint(sprints []sprintJSON, now time.Time) *sprintJSON {
	var latest *sprintJSON
	for i := range sprints {
		sp := &sprints[i]
		start, end := parseTime(sp.StartDate), parseTime(sp.EndDate)
		if !start.IsZero() && !end.IsZero() && !now.Before(start) && now.Before(end) {
			return sp
		}
		if latest == nil || start.After(parseTime(latest.StartDate)) {
			latest = sp
		}
	}
	return latest
}

type issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Key string `json:"key"`
			} `json:"statusCategory"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

func (b *Backend) sprintIssues(ctx context.Context, c *rest.Client, sprintID int) ([]issue, error) {
	var all []issue
	for startAt := 0; ; {
		q := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(pageSize)},
			"fields":     {"summary,status,issuetype,assignee"},
		}
		var page struct {
			StartAt    int     `json:"startAt"`
			MaxResults int     `json:"maxResults"`
			Total      int     `json:"total"`
			Issues     *[]issue `json:"issues"`
		}
		u := c.Endpoint(q, "rest/agile/1.0/sprint", strconv.Itoa(sprintID), "issue")
		if err := c.GetJSON(ctx, "fetch sprint issues", u, &page); err != nil {
			return nil, err
		}
		if page.Issues == nil {
			return nil, &core.Error{
				Kind:    core.KindBackendResponse,
				Op:      "fetch sprint issues",
				Backend: Name,
				Err:     errors.New("response has no issues list"),
			}
		}
		all = append(all, *page.Issues...)
		startAt += len(*page.Issues)
		if len(*page.Issues) == 0 || startAt >= page.Total {
			return all, nil
		}
	}
}

func (is issue) toItem(base string, mapper *core.StatusMapper) (core.WorkItem, error) {
	id := strings.TrimSpace(is.Key)
	if id == "" {
		id = strings.TrimSpace(is.ID)
	}
	if id == "" {
		return core.WorkItem{}, &core.Error{
			Kind:    core.KindBackendResponse,
			Op:      "fetch sprint issues",
			Backend: Name,
			Err:     fmt.Errorf("issue %q has neither key nor id", is.Fields.Summary),
		}
	}
	native := is.Fields.Status.Name
	item := core.WorkItem{
		ID:     id,
		Title:  is.Fields.Summary,
		Native: native,
		Status: status(mapper, native, is.Fields.Status.StatusCategory.Key),
		Type:   is.Fields.IssueType.Name,
		URL:    base + "/browse/" + url.PathEscape(id),
		Meta:   map[string]string{"issue_id": is.ID},
	}
	if is.Fields.Assignee != nil {
		item.Assignee = is.Fields.Assignee.DisplayName
	}
	return item, nil
}

// status maps a Jira status: user rules first, then the status category for
// the two fixed categories, else the status name.
func status(mapper *core.StatusMapper, name, category string) string {
	if column, ok := mapper.Override(name); ok {
		return column
	}
	switch category {
	case "new":
		return "To Do"
	case "done":
		return "Done"
	}
	return mapper.Map(name)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
