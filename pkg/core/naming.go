package core

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const boardExt = ".md"

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	trimHyphens     = regexp.MustCompile(`^-+|-+$`)
)

// BoardPath returns the slash-separated path of the board document for the
// settings, relative to the vault root.
//
// The file is board_file when set, otherwise sprint-<project>[-<team>].md
// with both parts slugged.
func BoardPath(s Settings) string {
	name := strings.TrimSpace(s.BoardFile)
	if name == "" {
		parts := []string{"sprint"}
		if p := Slug(s.Project); p != "" {
			parts = append(parts, p)
		}
		if t := Slug(s.Team); t != "" && t != Slug(s.Project) {
			parts = append(parts, t)
		}
		if len(parts) == 1 {
			parts = append(parts, "board")
		}
		name = strings.Join(parts, "-")
	}
	if path.Ext(name) != boardExt {
		name += boardExt
	}
	folder := strings.Trim(path.Clean("/"+filepathToSlash(s.TargetFolder)), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// Slug lowercases s, strips accents and joins alphanumeric runs with hyphens.
func Slug(s string) string {
	s = strings.ToLower(s)
	s = removeAccents(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return trimHyphens.ReplaceAllString(s, "")
}

func removeAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
