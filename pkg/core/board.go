package core

import "slices"

// Metadata holds frontmatter keys the board does not interpret.
// They are carried through a sync untouched.
type Metadata map[string]any

// SprintInfo describes the sprint a board was last synced from.
// Dates are kept as text so a document round-trips byte for byte.
type SprintInfo struct {
	Backend string `json:"backend,omitempty"`
	Project string `json:"project,omitempty"`
	Team    string `json:"team,omitempty"`
	Name    string `json:"name,omitempty"`
	Start   string `json:"start,omitempty"`
	Finish  string `json:"finish,omitempty"`
}

// Board is the Kanban document: ordered columns, each owning ordered cards.
// Position within a slice is the order of the element.
type Board struct {
	Metadata Metadata
	Sprint   SprintInfo
	Preamble []string // passthrough between the frontmatter and the first column
	Columns  []Column
	Epilogue []string // passthrough after the last column (settings block, archive)
}

// Column is a named list of cards. Managed columns were created by a sync
// to hold a status and may be removed once empty; others belong to the user.
type Column struct {
	Name    string
	Managed bool
	Lead    []string // passthrough between the heading and the first card
	Cards   []Card
}

// Card is one entry of a column. A card with a zero Ref is user-authored.
type Card struct {
	Ref      ItemRef
	Text     string
	Checked  bool
	Notes    []string // indented continuation lines, kept verbatim
	Trailing []string // passthrough that follows the card
}

// Linked reports whether the card mirrors a work item.
func (c Card) Linked() bool {
	return !c.Ref.IsZero()
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// ColumnIndex returns the index of the first column named name, or -1.
func (b *Board) ColumnIndex(name string) int {
	for i, col := range b.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column named name exists.
func (b *Board) HasColumn(name string) bool {
	return b.ColumnIndex(name) >= 0
}

// AddColumn appends a column and returns its index.
// If the column already exists its index is returned unchanged.
func (b *Board) AddColumn(name string, managed bool) int {
	if idx := b.ColumnIndex(name); idx >= 0 {
		return idx
	}
	b.Columns = append(b.Columns, Column{Name: name, Managed: managed})
	return len(b.Columns) - 1
}

// ManagedColumns lists the names of backend-managed columns in board order.
func (b *Board) ManagedColumns() []string {
	var names []string
	for _, col := range b.Columns {
		if col.Managed {
			names = append(names, col.Name)
		}
	}
	return names
}

// FindCard locates the first card linked to ref.
// It returns the column and card indexes, or -1, -1.
func (b *Board) FindCard(ref ItemRef) (int, int) {
	for ci, col := range b.Columns {
		for k, card := range col.Cards {
			if card.Ref == ref {
				return ci, k
			}
		}
	}
	return -1, -1
}

// CardCount returns the number of cards across all columns.
func (b *Board) CardCount() int {
	n := 0
	for _, col := range b.Columns {
		n += len(col.Cards)
	}
	return n
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return NewBoard()
	}
	out := &Board{
		Metadata: cloneMetadata(b.Metadata),
		Sprint:   b.Sprint,
		Preamble: slices.Clone(b.Preamble),
		Epilogue: slices.Clone(b.Epilogue),
	}
	if b.Columns != nil {
		out.Columns = make([]Column, len(b.Columns))
		for i, col := range b.Columns {
			out.Columns[i] = col.clone()
		}
	}
	return out
}

func (c Column) clone() Column {
	out := Column{Name: c.Name, Managed: c.Managed, Lead: slices.Clone(c.Lead)}
	if c.Cards != nil {
		out.Cards = make([]Card, len(c.Cards))
		for i, card := range c.Cards {
			card.Notes = slices.Clone(card.Notes)
			card.Trailing = slices.Clone(card.Trailing)
			out.Cards[i] = card
		}
	}
	return out
}

func cloneMetadata(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}
