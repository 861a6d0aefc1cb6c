package events

import "strings"

// MatchPattern reports whether an event name matches a subscription
// pattern. Rules, in order: literal equality; the lone wildcard "*";
// "Prefix.*" matching names that begin with "Prefix."; "*.suffix"
// matching names that end with ".suffix". Anything else is no match.
func MatchPattern(event, pattern string) bool {
	if event == pattern {
		return true
	}
	if pattern == "*" {
		return true
	}
	if rest, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(event, rest+".")
	}
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(event, "."+rest)
	}
	return false
}
