package core_test

import (
	"testing"

	"github.com/aretw0/sprintboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sprintOf(items ...core.WorkItem) *core.Sprint {
	return &core.Sprint{Backend: "Fake", Project: "Proj", Name: "Sprint 1", Items: items}
}

func ref(id string) core.ItemRef {
	return core.ItemRef{Backend: "Fake", Project: "Proj", ID: id}
}

func columnNames(b *core.Board) []string {
	var names []string
	for _, col := range b.Columns {
		names = append(names, col.Name)
	}
	return names
}

func TestReconcile_EmptyBoard(t *testing.T) {
	next, stats := core.Reconcile(nil, sprintOf(
		core.WorkItem{ID: "1", Title: "First", Status: "To Do"},
		core.WorkItem{ID: "2", Title: "Second", Status: "Doing"},
	))

	require.Equal(t, []string{"To Do", "Doing"}, columnNames(next))
	require.Len(t, next.Columns[0].Cards, 1)
	require.Len(t, next.Columns[1].Cards, 1)
	assert.Equal(t, ref("1"), next.Columns[0].Cards[0].Ref)
	assert.Equal(t, ref("2"), next.Columns[1].Cards[0].Ref)
	assert.True(t, next.Columns[0].Managed)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 2, stats.ColumnsAdded)
	assert.Equal(t, "Sprint 1", next.Sprint.Name)
}

func TestReconcile_MoveKeepsUserNote(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{
		{Name: "To Do", Managed: true, Cards: []core.Card{
			{Ref: ref("1"), Text: "1 · Task"},
		}},
		{Name: "Doing", Managed: true, Cards: []core.Card{
			{Text: "Remember to ask about X"},
		}},
	}}

	next, stats := core.Reconcile(prev, sprintOf(
		core.WorkItem{ID: "1", Title: "Task", Status: "Doing"},
	))

	require.Equal(t, []string{"Doing"}, columnNames(next))
	cards := next.Columns[0].Cards
	require.Len(t, cards, 2)
	assert.Equal(t, "Remember to ask about X", cards[0].Text)
	assert.False(t, cards[0].Linked())
	assert.Equal(t, ref("1"), cards[1].Ref)
	assert.Equal(t, 1, stats.Moved)
	assert.Equal(t, 1, stats.ColumnsRemoved)

	// prev is untouched
	assert.Len(t, prev.Columns, 2)
	assert.Equal(t, ref("1"), prev.Columns[0].Cards[0].Ref)
}

func TestReconcile_Idempotent(t *testing.T) {
	sprint := sprintOf(
		core.WorkItem{ID: "1", Title: "A", Status: "To Do", Type: "Bug"},
		core.WorkItem{ID: "2", Title: "B", Status: "Doing", Assignee: "Ana"},
		core.WorkItem{ID: "3", Title: "C", Status: "Done"},
	)
	prev := &core.Board{Columns: []core.Column{
		{Name: "Backlog", Cards: []core.Card{{Text: "idea"}}},
	}}

	first, _ := core.Reconcile(prev, sprint)
	second, stats := core.Reconcile(first, sprint)

	assert.Equal(t, first, second)
	assert.False(t, stats.Changed())
	assert.Equal(t, 3, stats.Unchanged)
}

func TestReconcile_PreservesUnlinkedCards(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{
		{Name: "To Do", Managed: true, Cards: []core.Card{
			{Text: "note a"},
			{Ref: ref("1"), Text: "1"},
			{Text: "note b", Notes: []string{"  detail"}},
		}},
		{Name: "Ideas", Cards: []core.Card{{Text: "user column card"}}},
	}}

	next, _ := core.Reconcile(prev, sprintOf(
		core.WorkItem{ID: "1", Status: "Done"},
		core.WorkItem{ID: "2", Status: "Doing"},
	))

	todo := next.Columns[next.ColumnIndex("To Do")]
	require.Len(t, todo.Cards, 2)
	assert.Equal(t, "note a", todo.Cards[0].Text)
	assert.Equal(t, "note b", todo.Cards[1].Text)
	assert.Equal(t, []string{"  detail"}, todo.Cards[1].Notes)

	ideas := next.Columns[next.ColumnIndex("Ideas")]
	require.Len(t, ideas.Cards, 1)
	assert.Equal(t, "user column card", ideas.Cards[0].Text)
}

func TestReconcile_Completeness(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{
		{Name: "Doing", Managed: true, Cards: []core.Card{
			{Ref: ref("1"), Text: "stale"},
			{Ref: ref("1"), Text: "duplicate"},
		}},
	}}
	sprint := sprintOf(
		core.WorkItem{ID: "1", Status: "Doing"},
		core.WorkItem{ID: "2", Status: "To Do"},
		core.WorkItem{ID: "2", Status: "Done"}, // duplicate id, first wins
		core.WorkItem{ID: "3", Status: ""},
	)

	next, _ := core.Reconcile(prev, sprint)

	want := map[string]string{"1": "Doing", "2": "To Do", "3": "No Status"}
	seen := map[string]int{}
	for _, col := range next.Columns {
		for _, card := range col.Cards {
			if !card.Linked() {
				continue
			}
			seen[card.Ref.ID]++
			assert.Equal(t, want[card.Ref.ID], col.Name, "item %s", card.Ref.ID)
		}
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, seen)
}

func TestReconcile_RemovesVanishedItems(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{
		{Name: "Doing", Managed: true, Cards: []core.Card{
			{Ref: ref("1"), Text: "kept"},
			{Ref: ref("9"), Text: "gone", Trailing: []string{"<!-- keep me -->"}},
		}},
		{Name: "Review", Managed: true, Cards: []core.Card{
			{Ref: ref("8"), Text: "gone too"},
		}},
		{Name: "Waiting", Managed: true, Lead: []string{"user text"}, Cards: []core.Card{
			{Ref: ref("7"), Text: "gone as well"},
		}},
		{Name: "Parking", Cards: []core.Card{
			{Ref: ref("6"), Text: "linked card in a user column"},
		}},
	}}

	next, stats := core.Reconcile(prev, sprintOf(core.WorkItem{ID: "1", Status: "Doing"}))

	_, k := next.FindCard(ref("9"))
	assert.Equal(t, -1, k)
	assert.Equal(t, 4, stats.Removed)

	doing := next.Columns[next.ColumnIndex("Doing")]
	require.Len(t, doing.Cards, 1)
	assert.Equal(t, []string{"<!-- keep me -->"}, doing.Cards[0].Trailing)

	// Managed and empty: removed. Managed with user lead: kept. User column: kept.
	assert.Equal(t, []string{"Doing", "Waiting", "Parking"}, columnNames(next))
	assert.Empty(t, next.Columns[next.ColumnIndex("Parking")].Cards)
}

func TestReconcile_KeepsUserEmptyColumns(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{{Name: "Someday"}}}

	next, _ := core.Reconcile(prev, sprintOf())

	assert.Equal(t, []string{"Someday"}, columnNames(next))
}

func TestReconcile_UpdateInPlace(t *testing.T) {
	prev := &core.Board{Columns: []core.Column{
		{Name: "Doing", Managed: true, Cards: []core.Card{
			{Ref: ref("1"), Text: "1 · Old title", Notes: []string{"\tmy notes"}},
			{Ref: ref("2"), Text: "2 · Other"},
		}},
	}}

	next, stats := core.Reconcile(prev, sprintOf(
		core.WorkItem{ID: "2", Title: "Other", Status: "Doing"},
		core.WorkItem{ID: "1", Title: "New title", Status: "Doing"},
	))

	cards := next.Columns[0].Cards
	require.Len(t, cards, 2)
	assert.Equal(t, "1 · New title", cards[0].Text)
	assert.Equal(t, []string{"\tmy notes"}, cards[0].Notes)
	assert.Equal(t, "2 · Other", cards[1].Text)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Unchanged)
}

func TestReconcile_NewDoneCardsAreChecked(t *testing.T) {
	next, _ := core.Reconcile(nil, sprintOf(core.WorkItem{ID: "5", Status: "Done"}))

	require.Len(t, next.Columns, 1)
	assert.True(t, next.Columns[0].Cards[0].Checked)
}

func TestRenderCard(t *testing.T) {
	tests := []struct {
		name string
		item core.WorkItem
		want string
	}{
		{"id only", core.WorkItem{ID: "7"}, "7"},
		{"with url", core.WorkItem{ID: "7", Title: "Fix", URL: "https://x/7"}, "[7](https://x/7) · Fix"},
		{"full", core.WorkItem{ID: "PRJ-1", Title: "Login\nbroken", Type: "Bug", Assignee: "Ana Lima"}, "PRJ-1 · Login broken (Bug) @Ana Lima"},
		{"markers defused", core.WorkItem{ID: "1", Title: "50%% done"}, "1 · 50% done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.RenderCard(tt.item))
		})
	}
}

func TestReconcile_SkipsItemsWithoutIdentity(t *testing.T) {
	tests := []struct {
		name   string
		sprint *core.Sprint
	}{
		{"blank id", sprintOf(core.WorkItem{ID: "", Status: "To Do"})},
		{"whitespace id", sprintOf(core.WorkItem{ID: " \t", Status: "To Do"})},
		{"blank project", &core.Sprint{Backend: "Fake", Items: []core.WorkItem{{ID: "1", Status: "To Do"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, stats := core.Reconcile(nil, tt.sprint)
			assert.Empty(t, next.Columns)
			assert.Zero(t, stats.Added)
		})
	}
}

func TestReconcile_CollapsesStatusWhitespace(t *testing.T) {
	sprint := sprintOf(
		core.WorkItem{ID: "1", Title: "A", Status: "  In\nReview "},
		core.WorkItem{ID: "2", Title: "B", Status: "In Review"},
		core.WorkItem{ID: "3", Title: "C", Status: " \t"},
	)

	next, _ := core.Reconcile(nil, sprint)
	require.Equal(t, []string{"In Review", core.NoStatusColumn}, columnNames(next))
	assert.Len(t, next.Columns[0].Cards, 2)

	again, stats := core.Reconcile(next, sprint)
	assert.Equal(t, next, again)
	assert.False(t, stats.Changed())
}

func TestItemRef_Valid(t *testing.T) {
	assert.True(t, ref("1").Valid())
	assert.False(t, ref("").Valid())
	assert.False(t, ref(" ").Valid())
	assert.False(t, core.ItemRef{Backend: "Fake", ID: "1"}.Valid())

	_, err := core.ParseItemRef(ref(" ").String())
	assert.Error(t, err)
}
