package search

import "strings"

// tsquerySyntax are the characters to_tsquery gives a meaning to. They are
// treated as word separators so user input can never produce a syntax error.
var tsquerySyntax = strings.NewReplacer(
	"&", " ", "|", " ", "!", " ", "(", " ", ")", " ",
	":", " ", "*", " ", "<", " ", ">", " ", "'", " ", "\\", " ",
)

// ToTsQuery converts free text into a to_tsquery expression where every word
// is a prefix match and all words are required:
//
//	"boulangerie du port" -> "boulangerie:* & du:* & port:*"
//
// It returns "" when no word survives sanitizing.
func ToTsQuery(terms string) string {
	words := strings.Fields(tsquerySyntax.Replace(terms))
	if len(words) == 0 {
		return ""
	}

	parts := make([]string, 0, len(words))
	for _, word := range words {
		parts = append(parts, sanitizeTsQueryTerm(word))
	}

	return strings.Join(parts, " & ")
}

// sanitizeTsQueryTerm lower-cases a single word and adds the prefix marker
func sanitizeTsQueryTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ""
	}
	return term + ":*"
}
