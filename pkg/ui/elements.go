package ui

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// voidElements can never have children and have no closing tag
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// IsVoid reports whether name is an HTML void element. Matching ignores case.
func IsVoid(name string) bool {
	a := atom.Lookup([]byte(strings.ToLower(name)))
	return a != 0 && voidElements[a]
}
