package core

import (
	"fmt"
	"strings"
)

// CommitFooter marks commits made by a sync.
const CommitFooter = "Synced-by: sprintboard"

// CommitMessage builds the Conventional Commit recorded after a board write:
//
//	chore(board): sync <sprint>
//
//	<path>: +added ~moved ±updated -removed
//
//	Synced-by: sprintboard
func CommitMessage(path, sprint string, stats Stats) string {
	var sb strings.Builder
	sb.WriteString("chore(board): sync ")
	if sprint == "" {
		sb.WriteString(path)
	} else {
		sb.WriteString(sprint)
	}

	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s: +%d ~%d ±%d -%d", path, stats.Added, stats.Moved, stats.Updated, stats.Removed)

	sb.WriteString("\n\n")
	sb.WriteString(CommitFooter)
	return sb.String()
}
