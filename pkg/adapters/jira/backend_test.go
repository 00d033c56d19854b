package jira_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aretw0/sprintboard/pkg/adapters/jira"
	"github.com/aretw0/sprintboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sprintsJSON = `{"values":[
	{"id":40,"name":"PRJ Sprint 40","state":"active","startDate":"2024-04-01T09:00:00.000Z","endDate":"2024-04-15T09:00:00.000Z"},
	{"id":41,"name":"PRJ Sprint 41","state":"active","startDate":"2024-05-01T09:00:00.000Z","endDate":"2024-05-15T09:00:00.000Z"}]}`

func issueJSON(n int, status, category string) string {
	return fmt.Sprintf(`{"id":"100%d","key":"PRJ-%d","fields":{"summary":"Issue %d",
		"status":{"name":%q,"statusCategory":{"key":%q}},"issuetype":{"name":"Story"},"assignee":null}}`,
		n, n, n, status, category)
}

type jiraServer struct {
	*httptest.Server
	auth string
}

func newJiraServer(t *testing.T) *jiraServer {
	t.Helper()
	js := &jiraServer{}
	js.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js.auth = r.Header.Get("Authorization")
		q := r.URL.Query()
		switch r.URL.Path {
		case "/rest/agile/1.0/board":
			if q.Get("projectKeyOrId") != "PRJ" {
				_, _ = w.Write([]byte(`{"values":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"values":[{"id":3,"name":"PRJ kanban","type":"kanban"},{"id":7,"name":"PRJ board","type":"scrum"}]}`))
		case "/rest/agile/1.0/board/7/sprint":
			_, _ = w.Write([]byte(sprintsJSON))
		case "/rest/agile/1.0/sprint/41/issue":
			startAt, _ := strconv.Atoi(q.Get("startAt"))
			switch startAt {
			case 0:
				fmt.Fprintf(w, `{"startAt":0,"maxResults":2,"total":3,"issues":[%s,%s]}`,
					issueJSON(1, "To Do", "new"), issueJSON(2, "In Review", "indeterminate"))
			default:
				fmt.Fprintf(w, `{"startAt":2,"maxResults":2,"total":3,"issues":[%s]}`,
					issueJSON(3, "Closed", "done"))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(js.Close)
	return js
}

func settings(instance string) core.Settings {
	s := core.DefaultSettings()
	s.Backend = jira.Name
	s.Instance = instance
	s.Project = "PRJ"
	s.AccessToken = "tok"
	return s
}

func TestFetchCurrentSprint(t *testing.T) {
	srv := newJiraServer(t)
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	b := jira.New(jira.WithClock(func() time.Time { return now }))

	sprint, err := b.FetchCurrentSprint(context.Background(), settings(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "PRJ Sprint 41", sprint.Name)
	assert.Equal(t, "Bearer tok", srv.auth)
	require.Len(t, sprint.Items, 3)

	assert.Equal(t, "PRJ-1", sprint.Items[0].ID)
	assert.Equal(t, "To Do", sprint.Items[0].Status)
	assert.Equal(t, srv.URL+"/browse/PRJ-1", sprint.Items[0].URL)
	assert.Equal(t, "In Review", sprint.Items[1].Status)
	assert.Equal(t, "Done", sprint.Items[2].Status)
	assert.Equal(t, "Closed", sprint.Items[2].Native)
}

func TestFetchCurrentSprint_BasicAuthAndOverrides(t *testing.T) {
	srv := newJiraServer(t)
	s := settings(srv.URL)
	s.Username = "me@example.com"
	s.StatusMap = []core.StatusRule{{Match: "Closed", Column: "Shipped"}}

	sprint, err := jira.New().FetchCurrentSprint(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "Basic bWVAZXhhbXBsZS5jb206dG9r", srv.auth)
	assert.Equal(t, "Shipped", sprint.Items[2].Status)
}

func TestFetchCurrentSprint_LatestStartWhenNoneCurrent(t *testing.T) {
	srv := newJiraServer(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	sprint, err := jira.New(jira.WithClock(func() time.Time { return now })).
		FetchCurrentSprint(context.Background(), settings(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "PRJ Sprint 41", sprint.Name)
}

func TestFetchCurrentSprint_NotFound(t *testing.T) {
	srv := newJiraServer(t)
	s := settings(srv.URL)
	s.Project = "NOPE"

	_, err := jira.New().FetchCurrentSprint(context.Background(), s)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestFetchCurrentSprint_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := jira.New().FetchCurrentSprint(context.Background(), settings(srv.URL))
	assert.Equal(t, core.KindAuthentication, core.KindOf(err))
}

// issuesServer serves one board and one active sprint whose issue page is body.
func issuesServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/agile/1.0/board":
			_, _ = w.Write([]byte(`{"values":[{"id":7,"name":"PRJ board","type":"scrum"}]}`))
		case "/rest/agile/1.0/board/7/sprint":
			_, _ = w.Write([]byte(sprintsJSON))
		case "/rest/agile/1.0/sprint/41/issue":
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCurrentSprint_UnmappableResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"issues list missing", `{"startAt":0,"maxResults":50,"total":2,"values":[]}`},
		{"issues list null", `{"startAt":0,"total":0,"issues":null}`},
		{"issue without key or id", `{"startAt":0,"total":1,"issues":[{"id":"","key":" ","fields":{"summary":"ghost","status":{"name":"To Do"}}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := issuesServer(t, tt.body)
			_, err := jira.New().FetchCurrentSprint(context.Background(), settings(srv.URL))
			require.Error(t, err)
			assert.Equal(t, core.KindBackendResponse, core.KindOf(err))
		})
	}
}

func TestFetchCurrentSprint_EmptySprint(t *testing.T) {
	srv := issuesServer(t, `{"startAt":0,"total":0,"issues":[]}`)

	sprint, err := jira.New().FetchCurrentSprint(context.Background(), settings(srv.URL))
	require.NoError(t, err)
	assert.Empty(t, sprint.Items)
}

func TestFetchCurrentSprint_FallsBackToIssueID(t *testing.T) {
	srv := issuesServer(t, `{"startAt":0,"total":1,"issues":[{"id":"10042","fields":{"summary":"keyless","status":{"name":"To Do"}}}]}`)

	sprint, err := jira.New().FetchCurrentSprint(context.Background(), settings(srv.URL))
	require.NoError(t, err)
	require.Len(t, sprint.Items, 1)
	assert.Equal(t, "10042", sprint.Items[0].ID)
}
