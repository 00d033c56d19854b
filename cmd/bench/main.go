package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/sprintboard"
	"github.com/aretw0/sprintboard/pkg/core"
)

var statuses = []string{"To Do", "Doing", "Review", "Done"}

// generatedBackend serves a large synthetic sprint whose items drift between
// columns from one round to the next.
type generatedBackend struct {
	items []core.WorkItem
}

func (b *generatedBackend) Name() string { return "Bench" }
func (b *generatedBackend) DescribeSettings() []core.SettingField { return nil }

func (b *generatedBackend) FetchCurrentSprint(ctx context.Context, s core.Settings) (*core.Sprint, error) {
	items := make([]core.WorkItem, len(b.items))
	copy(items, b.items)
	return &core.Sprint{Backend: "Bench", Project: s.Project, Name: "Bench Sprint", Items: items}, nil
}

func (b *generatedBackend) drift(fraction float64) {
	for i := range b.items {
		if rand.Float64() < fraction {
			b.items[i].Status = statuses[rand.IntN(len(statuses))]
		}
	}
}

func main() {
	count := flag.Int("count", 1000, "Number of work items in the sprint")
	rounds := flag.Int("rounds", 5, "Number of syncs after the initial one")
	drift := flag.Float64("drift", 0.1, "Fraction of items changing status between rounds")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "sprintboard_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	backend := &generatedBackend{items: make([]core.WorkItem, *count)}
	for i := range backend.items {
		backend.items[i] = core.WorkItem{
			ID:     strconv.Itoa(i + 1),
			Title:  fmt.Sprintf("Generated item %d", i+1),
			Status: statuses[i%len(statuses)],
			Type:   "Task",
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := sprintboard.New(benchDir,
		sprintboard.WithLogger(logger),
		sprintboard.WithRegistry(core.NewRegistry(backend)),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	settings := sprintboard.Settings{Backend: "Bench", Project: "bench"}

	fmt.Printf("Initial sync of %d items...\n", *count)
	start := time.Now()
	report, err := service.RunSync(ctx, settings)
	if err != nil {
		panic(err)
	}
	initial := time.Since(start)
	fmt.Printf("Initial: %v (added %d)\n", initial, report.Stats.Added)

	var total time.Duration
	for r := 1; r <= *rounds; r++ {
		backend.drift(*drift)
		start := time.Now()
		report, err := service.RunSync(ctx, settings)
		if err != nil {
			panic(err)
		}
		d := time.Since(start)
		total += d
		fmt.Printf("Round %d: %v (moved %d)\n", r, d, report.Stats.Moved)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d items):\n", *count)
	fmt.Printf("  Initial: %v\n", initial)
	if *rounds > 0 {
		fmt.Printf("  Average: %v\n", total/time.Duration(*rounds))
	}
	fmt.Printf("--------------------------------------------------\n")
}
