package conversation

import (
	"strings"
	"unicode"

	"corvex/models"
)

// Lead-in phrases people type before their actual name.
var namePrefixes = []string{
	"my name is ",
	"i am ",
	"i'm ",
	"im ",
	"this is ",
	"it's ",
	"its ",
}

// ParsedName is the outcome of the name-collection heuristic.
type ParsedName struct {
	First string
	Last  string
}

// parseName extracts a first/last name from raw chat input. Two-token input
// is always read as first+last; a single token passes only when it meets
// the device policy's minimum length. Lead-in phrases are stripped
// case-insensitively but the name keeps the casing the user typed, so
// "McDonald" and "O'Brien" survive intact. Returns false when nothing
// usable was found and the caller should re-prompt.
func parseName(input string, pol models.DevicePolicy) (ParsedName, bool) {
	cleaned := strings.TrimSpace(input)
	lowered := strings.ToLower(cleaned)
	for _, p := range namePrefixes {
		if strings.HasPrefix(lowered, p) {
			cleaned = strings.TrimSpace(cleaned[len(p):])
			break
		}
	}

	tokens := nameTokens(cleaned)
	if len(tokens) == 0 {
		return ParsedName{}, false
	}

	if len(tokens) >= 2 {
		if len(tokens[0]) < 2 || len(tokens[1]) < 2 {
			return ParsedName{}, false
		}
		return ParsedName{First: title(tokens[0]), Last: title(tokens[1])}, true
	}

	if len(tokens[0]) < pol.MinSingleTokenLen {
		return ParsedName{}, false
	}
	return ParsedName{First: title(tokens[0])}, true
}

// nameTokens splits input into letter-only tokens, dropping punctuation and
// digits so "jane, doe!" still parses.
func nameTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// title capitalizes an all-lowercase token; tokens the user already cased
// themselves pass through unchanged.
func title(s string) string {
	if s == "" || s != strings.ToLower(s) {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// DisplayName joins the parsed parts for transcript and log use.
func (n ParsedName) DisplayName() string {
	if n.Last == "" {
		return n.First
	}
	return n.First + " " + n.Last
}
