// Package markdown reads and writes board documents in the Obsidian Kanban
// markdown layout: YAML frontmatter, one "## " heading per column and one
// "- [ ]" list item per card.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aretw0/sprintboard/pkg/core"
	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelim = "---"
	headingPrefix    = "## "
	markerPrefix     = "%%sprint-item:"
	markerSuffix     = "%%"
	settingsMarker   = "%% kanban:settings"
	archiveMarker    = "***"
	pluginKey        = "kanban-plugin"
	pluginValue      = "basic"
	sectionKey       = "sprint-board"
)

var cardLine = regexp.MustCompile(`^- \[([ xX])\](?: (.*))?$`)

// Codec implements core.Codec.
type Codec struct{}

// NewCodec returns a board codec.
func NewCodec() *Codec {
	return &Codec{}
}

var _ core.Codec = (*Codec)(nil)

// sprintSection is the frontmatter block owned by the sync.
type sprintSection struct {
	Backend        string   `yaml:"backend,omitempty"`
	Project        string   `yaml:"project,omitempty"`
	Team           string   `yaml:"team,omitempty"`
	Sprint         string   `yaml:"sprint,omitempty"`
	Start          string   `yaml:"start,omitempty"`
	Finish         string   `yaml:"finish,omitempty"`
	ManagedColumns []string `yaml:"managed-columns,omitempty"`
}

type frontmatter struct {
	Plugin string         `yaml:"kanban-plugin"`
	Board  *sprintSection `yaml:"sprint-board,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

// Parse reads a board document. Empty text yields an empty board.
//
// Content that is not column or card markup is kept as passthrough on the
// nearest structural element. A card whose sync marker cannot be read is
// returned as a user card with its text untouched.
func (c *Codec) Parse(data []byte) (*core.Board, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	board := core.NewBoard()
	managed := map[string]bool{}
	recognised := false

	if len(lines) > 0 && strings.TrimRight(lines[0], " \t") == frontmatterDelim {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimRight(lines[i], " \t") == frontmatterDelim {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, malformed(errors.New("frontmatter started but no closing delimiter found"))
		}
		var fm frontmatter
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &fm); err != nil {
			return nil, malformed(fmt.Errorf("failed to parse frontmatter: %w", err))
		}
		recognised = fm.Plugin != "" || fm.Board != nil
		if fm.Board != nil {
			board.Sprint = core.SprintInfo{
				Backend: fm.Board.Backend,
				Project: fm.Board.Project,
				Team:    fm.Board.Team,
				Name:    fm.Board.Sprint,
				Start:   fm.Board.Start,
				Finish:  fm.Board.Finish,
			}
			for _, name := range fm.Board.ManagedColumns {
				managed[name] = true
			}
		}
		if len(fm.Extra) > 0 {
			board.Metadata = core.Metadata(fm.Extra)
		}
		if fm.Plugin != "" && fm.Plugin != pluginValue {
			if board.Metadata == nil {
				board.Metadata = core.Metadata{}
			}
			board.Metadata[pluginKey] = fm.Plugin
		}
		lines = lines[end+1:]
	}

	p := &parser{board: board, managed: managed, fenced: fencedLines(lines)}
	for i, line := range lines {
		p.line(i, line)
	}
	p.flush()

	if len(board.Columns) == 0 && !recognised && len(board.Preamble) > 0 {
		return nil, malformed(errors.New("no columns found"))
	}
	return board, nil
}

func malformed(err error) error {
	return core.NewError(core.KindMalformedDocument, "parse board", err)
}

type parseState int

const (
	inPreamble parseState = iota
	inLead
	inCard
	inTrailing
	inEpilogue
)

type parser struct {
	board   *core.Board
	managed map[string]bool
	fenced  []bool
	state   parseState
	buf     []string
}

func (p *parser) line(i int, line string) {
	if p.state == inEpilogue {
		p.buf = append(p.buf, line)
		return
	}
	if !p.fenced[i] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, settingsMarker) || trimmed == archiveMarker {
			p.flush()
			p.state = inEpilogue
			p.buf = append(p.buf, line)
			return
		}
		if name, ok := heading(line); ok {
			p.flush()
			p.board.Columns = append(p.board.Columns, core.Column{Name: name, Managed: p.managed[name]})
			p.state = inLead
			return
		}
		if p.state != inPreamble {
			if m := cardLine.FindStringSubmatch(line); m != nil {
				p.flush()
				col := &p.board.Columns[len(p.board.Columns)-1]
				col.Cards = append(col.Cards, parseCard(m[1], m[2]))
				p.state = inCard
				return
			}
			if p.state == inCard && isNote(line) {
				col := &p.board.Columns[len(p.board.Columns)-1]
				card := &col.Cards[len(col.Cards)-1]
				card.Notes = append(card.Notes, line)
				return
			}
		}
	}
	if p.state == inCard {
		p.state = inTrailing
	}
	p.buf = append(p.buf, line)
}

// flush attaches buffered passthrough lines to the element they follow.
func (p *parser) flush() {
	block := trimBlank(p.buf)
	p.buf = nil
	if len(block) == 0 {
		return
	}
	switch p.state {
	case inPreamble:
		p.board.Preamble = append(p.board.Preamble, block...)
	case inLead:
		col := &p.board.Columns[len(p.board.Columns)-1]
		col.Lead = append(col.Lead, block...)
	case inCard, inTrailing:
		col := &p.board.Columns[len(p.board.Columns)-1]
		card := &col.Cards[len(col.Cards)-1]
		card.Trailing = append(card.Trailing, block...)
	case inEpilogue:
		p.board.Epilogue = append(p.board.Epilogue, block...)
	}
}

func heading(line string) (string, bool) {
	if !strings.HasPrefix(line, headingPrefix) {
		return "", false
	}
	name := strings.TrimSpace(line[len(headingPrefix):])
	if name == "" || strings.HasPrefix(name, "#") {
		return "", false
	}
	if escaped(name) {
		name = name[1:]
	}
	return name, true
}

// escaped reports whether a heading name starts with a backslash escape.
func escaped(name string) bool {
	return strings.HasPrefix(name, `\#`) || strings.HasPrefix(name, `\\`)
}

// escapeHeading renders a column name so heading reads it back unchanged.
func escapeHeading(name string) string {
	if strings.HasPrefix(name, "#") || escaped(name) {
		return `\` + name
	}
	return name
}

func isNote(line string) bool {
	return (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && strings.TrimSpace(line) != ""
}

func parseCard(check, text string) core.Card {
	card := core.Card{Checked: check != " ", Text: text}
	if strings.Count(text, markerPrefix) != 1 {
		return card
	}
	idx := strings.Index(text, markerPrefix)
	rest := strings.TrimRight(text[idx+len(markerPrefix):], " \t")
	if !strings.HasSuffix(rest, markerSuffix) {
		return card
	}
	ref, err := core.ParseItemRef(strings.TrimSuffix(rest, markerSuffix))
	if err != nil {
		return card
	}
	card.Ref = ref
	card.Text = strings.TrimRight(text[:idx], " \t")
	return card
}

// fencedLines marks the lines inside closed ``` or ~~~ fences, including the
// fence lines themselves. An unclosed fence is treated as plain text.
func fencedLines(lines []string) []bool {
	out := make([]bool, len(lines))
	for i := 0; i < len(lines); i++ {
		fence := fenceOf(lines[i])
		if fence == "" {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), fence) {
				for k := i; k <= j; k++ {
					out[k] = true
				}
				i = j
				break
			}
		}
	}
	return out
}

func fenceOf(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, f) {
			return f
		}
	}
	return ""
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return nil
	}
	return slices.Clone(lines[start:end])
}

// Serialize renders a board. The output depends only on the board, so equal
// boards always produce identical text.
func (c *Codec) Serialize(board *core.Board) ([]byte, error) {
	if board == nil {
		board = core.NewBoard()
	}

	fm := frontmatter{Plugin: pluginValue}
	if plugin, ok := board.Metadata[pluginKey].(string); ok && plugin != "" {
		fm.Plugin = plugin
	}
	if len(board.Metadata) > 0 {
		fm.Extra = make(map[string]any, len(board.Metadata))
		for k, v := range board.Metadata {
			if k != pluginKey && k != sectionKey {
				fm.Extra[k] = v
			}
		}
	}
	section := sprintSection{
		Backend:        board.Sprint.Backend,
		Project:        board.Sprint.Project,
		Team:           board.Sprint.Team,
		Sprint:         board.Sprint.Name,
		Start:          board.Sprint.Start,
		Finish:         board.Sprint.Finish,
		ManagedColumns: board.ManagedColumns(),
	}
	if board.Sprint != (core.SprintInfo{}) || len(section.ManagedColumns) > 0 {
		fm.Board = &section
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString(frontmatterDelim + "\n")

	var sections [][]string
	if len(board.Preamble) > 0 {
		sections = append(sections, board.Preamble)
	}
	for _, col := range board.Columns {
		sections = append(sections, []string{headingPrefix + escapeHeading(col.Name)})
		if len(col.Lead) > 0 {
			sections = append(sections, col.Lead)
		}
		var run []string
		for _, card := range col.Cards {
			run = append(run, renderCard(card))
			run = append(run, card.Notes...)
			if len(card.Trailing) > 0 {
				sections = append(sections, run, card.Trailing)
				run = nil
			}
		}
		if len(run) > 0 {
			sections = append(sections, run)
		}
	}
	if len(board.Epilogue) > 0 {
		sections = append(sections, board.Epilogue)
	}

	for _, s := range sections {
		buf.WriteString("\n")
		for _, line := range s {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

func renderCard(card core.Card) string {
	check := " "
	if card.Checked {
		check = "x"
	}
	line := "- [" + check + "] " + card.Text
	if card.Linked() {
		marker := markerPrefix + card.Ref.String() + markerSuffix
		if card.Text == "" {
			line += marker
		} else {
			line += " " + marker
		}
	}
	return line
}
