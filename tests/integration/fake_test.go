package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/sprintboard/pkg/core"
)

type fakeItem struct {
	ID       int
	Title    string
	State    string
	Type     string
	Assignee string
}

// fakeAzure serves one team's current iteration. Tests mutate items between
// syncs to simulate work happening on the server.
type fakeAzure struct {
	*httptest.Server

	mu     sync.Mutex
	items  []fakeItem
	status int
	calls  int
}

func newFakeAzure(t *testing.T, items ...fakeItem) *fakeAzure {
	t.Helper()
	f := &fakeAzure{items: items, status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAzure) set(mutate func(items []fakeItem) []fakeItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = mutate(f.items)
}

func (f *fakeAzure) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeAzure) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch path := r.URL.EscapedPath(); {
	case strings.HasSuffix(path, "/_apis/work/teamsettings/iterations"):
		fmt.Fprint(w, `{"count":1,"value":[{"id":"it-5","name":"Sprint 5","path":"Fabrikam\\Sprint 5",
			"attributes":{"startDate":"2024-05-06T00:00:00Z","finishDate":"2024-05-17T00:00:00Z","timeFrame":"current"}}]}`)

	case strings.HasSuffix(path, "/iterations/it-5/workitems"):
		type target struct {
			ID int `json:"id"`
		}
		type relation struct {
			Target target `json:"target"`
		}
		rels := make([]relation, 0, len(f.items))
		for _, it := range f.items {
			rels = append(rels, relation{Target: target{ID: it.ID}})
		}
		json.NewEncoder(w).Encode(map[string]any{"workItemRelations": rels})

	case strings.HasSuffix(path, "/_apis/wit/workitems"):
		wanted := map[int]bool{}
		for _, s := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if id, err := strconv.Atoi(s); err == nil {
				wanted[id] = true
			}
		}
		values := []map[string]any{}
		for _, it := range f.items {
			if !wanted[it.ID] {
				continue
			}
			fields := map[string]any{
				"System.Title":        it.Title,
				"System.State":        it.State,
				"System.WorkItemType": it.Type,
			}
			if it.Assignee != "" {
				fields["System.AssignedTo"] = map[string]any{"displayName": it.Assignee}
			}
			values = append(values, map[string]any{"id": it.ID, "fields": fields})
		}
		json.NewEncoder(w).Encode(map[string]any{"count": len(values), "value": values})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAzure) settings() core.Settings {
	s := core.DefaultSettings()
	s.Instance = f.URL
	s.Project = "Fabrikam"
	s.Team = "Web Team"
	s.AccessToken = "pat"
	s.TargetFolder = "boards"
	return s
}
