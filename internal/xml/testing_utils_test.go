package xml

import (
	"regexp"
	"strings"
)

var (
	declRe     = regexp.MustCompile(`<\?xml[^>]*\?>`)
	betweenRe  = regexp.MustCompile(`>\s+<`)
	spacesRe   = regexp.MustCompile(`\s+`)
	selfCloseR = regexp.MustCompile(`\s+/>`)
)

// normalizeXML removes the declaration and inter-element whitespace so that
// documents can be compared as strings.
func normalizeXML(s string) string {
	s = declRe.ReplaceAllString(s, "")
	s = betweenRe.ReplaceAllString(s, "><")
	s = spacesRe.ReplaceAllString(s, " ")
	s = betweenRe.ReplaceAllString(s, "><")
	s = selfCloseR.ReplaceAllString(s, "/>")
	return strings.TrimSpace(s)
}
