package core

import (
	"strings"
)

// DoneColumn is the column whose new cards start checked.
const DoneColumn = "Done"

// Stats counts what a reconciliation changed.
type Stats struct {
	Added          int `json:"added"`
	Moved          int `json:"moved"`
	Updated        int `json:"updated"`
	Unchanged      int `json:"unchanged"`
	Removed        int `json:"removed"`
	ColumnsAdded   int `json:"columns_added"`
	ColumnsRemoved int `json:"columns_removed"`
}

// Changed reports whether the reconciliation altered the board's cards or columns.
func (s Stats) Changed() bool {
	return s.Added+s.Moved+s.Updated+s.Removed+s.ColumnsAdded+s.ColumnsRemoved > 0
}

// Reconcile merges a freshly fetched sprint into the previous board.
// prev is not modified; a nil prev is treated as an empty board.
//
// Rules:
//   - every fetched item ends up as exactly one linked card, in the column
//     named after its status;
//   - a linked card already in the right column keeps its position, a card
//     that changes column and a card for a new item go to the end;
//   - linked cards whose item is no longer fetched are removed;
//   - unlinked cards stay in their column, in their relative order;
//   - a managed column left empty is removed unless the sprint still has
//     that status or the column carries user content in its lead.
func Reconcile(prev *Board, sprint *Sprint) (*Board, Stats) {
	var stats Stats
	next := prev.Clone()

	items, order := indexItems(sprint)
	wanted := make(map[string]bool, len(items))
	for _, ref := range order {
		wanted[items[ref].Status] = true
	}

	// Columns for statuses, in first-seen order, after existing ones.
	for _, ref := range order {
		status := items[ref].Status
		if !next.HasColumn(status) {
			next.AddColumn(status, true)
			stats.ColumnsAdded++
		}
	}

	placed := make(map[ItemRef]bool, len(items))
	pending := make(map[ItemRef]Card)

	for ci := range next.Columns {
		col := &next.Columns[ci]
		kept := col.Cards[:0:0]
		for _, card := range col.Cards {
			if !card.Linked() {
				kept = append(kept, card)
				continue
			}
			item, fetched := items[card.Ref]
			if !fetched || placed[card.Ref] {
				stats.Removed++
				kept = keepTrailing(col, kept, card)
				continue
			}
			placed[card.Ref] = true

			text := RenderCard(item)
			textChanged := card.Text != text
			card.Text = text

			if col.Name == item.Status {
				kept = append(kept, card)
				if textChanged {
					stats.Updated++
				} else {
					stats.Unchanged++
				}
				continue
			}
			stats.Moved++
			pending[card.Ref] = card
		}
		if len(kept) == 0 {
			kept = nil
		}
		col.Cards = kept
	}

	for _, ref := range order {
		item := items[ref]
		ci := next.ColumnIndex(item.Status)
		card, moved := pending[ref]
		if !moved {
			if placed[ref] {
				continue
			}
			card = Card{
				Ref:     ref,
				Text:    RenderCard(item),
				Checked: strings.EqualFold(item.Status, DoneColumn),
			}
			stats.Added++
		}
		next.Columns[ci].Cards = append(next.Columns[ci].Cards, card)
	}

	cols := next.Columns[:0:0]
	for _, col := range next.Columns {
		if col.Managed && len(col.Cards) == 0 && !wanted[col.Name] && len(col.Lead) == 0 {
			stats.ColumnsRemoved++
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		cols = nil
	}
	next.Columns = cols

	if sprint != nil {
		next.Sprint = SprintInfo{
			Backend: sprint.Backend,
			Project: sprint.Project,
			Team:    sprint.Team,
			Name:    sprint.Name,
			Start:   formatDate(sprint.Start),
			Finish:  formatDate(sprint.Finish),
		}
	}

	return next, stats
}

// NoStatusColumn holds items whose status is blank.
const NoStatusColumn = "No Status"

// indexItems keys the sprint's items by identity, keeping the first
// occurrence of a duplicated id, and returns them in fetch order. Items whose
// identity has a blank component are dropped: their card could not be linked
// back on the next sync. Statuses are collapsed onto one line.
func indexItems(sprint *Sprint) (map[ItemRef]WorkItem, []ItemRef) {
	if sprint == nil {
		return map[ItemRef]WorkItem{}, nil
	}
	items := make(map[ItemRef]WorkItem, len(sprint.Items))
	order := make([]ItemRef, 0, len(sprint.Items))
	for _, item := range sprint.Items {
		ref := sprint.Ref(item)
		if !ref.Valid() {
			continue
		}
		if _, dup := items[ref]; dup {
			continue
		}
		item.Status = strings.Join(strings.Fields(item.Status), " ")
		if item.Status == "" {
			item.Status = NoStatusColumn
		}
		items[ref] = item
		order = append(order, ref)
	}
	return items, order
}

// keepTrailing preserves the passthrough of a removed card by attaching it
// to the previous kept card, or to the column lead.
func keepTrailing(col *Column, kept []Card, removed Card) []Card {
	if len(removed.Trailing) == 0 {
		return kept
	}
	if len(kept) > 0 {
		last := &kept[len(kept)-1]
		last.Trailing = append(last.Trailing, removed.Trailing...)
		return kept
	}
	col.Lead = append(col.Lead, removed.Trailing...)
	return kept
}

// RenderCard renders the display text of a linked card:
// "<id> · <title> (<type>) @<assignee>". The id links to the item when a URL is known.
func RenderCard(item WorkItem) string {
	var b strings.Builder
	if item.URL != "" {
		b.WriteString("[" + item.ID + "](" + item.URL + ")")
	} else {
		b.WriteString(item.ID)
	}
	if title := cleanText(item.Title); title != "" {
		b.WriteString(" · " + title)
	}
	if typ := cleanText(item.Type); typ != "" {
		b.WriteString(" (" + typ + ")")
	}
	if who := cleanText(item.Assignee); who != "" {
		b.WriteString(" @" + who)
	}
	return b.String()
}

// cleanText flattens text onto one line and defuses comment markers.
func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "%%", "%")
}
