package sprintboard_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/sprintboard"
	"github.com/aretw0/sprintboard/pkg/core"
)

// staticBackend serves a fixed sprint, standing in for a remote tracker.
type staticBackend struct{}

func (staticBackend) Name() string { return "Static" }
func (staticBackend) DescribeSettings() []core.SettingField { return nil }

func (staticBackend) FetchCurrentSprint(ctx context.Context, s core.Settings) (*core.Sprint, error) {
	return &core.Sprint{
		Backend: "Static",
		Project: s.Project,
		Name:    "Sprint 1",
		Items: []core.WorkItem{
			{ID: "1", Title: "Login page", Status: "Doing", Type: "Task"},
			{ID: "2", Title: "Logout", Status: "To Do", Type: "Task"},
		},
	}, nil
}

// Example_sync demonstrates a first sync creating the board and a second
// one finding nothing to change.
func Example_sync() {
	tmpDir, err := os.MkdirTemp("", "sprintboard-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	svc, err := sprintboard.New(tmpDir, sprintboard.WithRegistry(core.NewRegistry(staticBackend{})))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	settings := sprintboard.Settings{Backend: "Static", Project: "Web"}

	report, err := svc.RunSync(ctx, settings)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: added %d, written %t\n", report.Path, report.Stats.Added, report.Written)

	report, err = svc.RunSync(ctx, settings)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: added %d, written %t\n", report.Path, report.Stats.Added, report.Written)
	// Output:
	// sprint-web.md: added 2, written true
	// sprint-web.md: added 0, written false
}
