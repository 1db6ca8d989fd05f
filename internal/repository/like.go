package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLikePattern escapes LIKE metacharacters so input matches literally
// when the query declares ESCAPE '\'.
func EscapeLikePattern(input string) string {
	return likeEscaper.Replace(input)
}

// containsPattern wraps an escaped term for substring search.
func containsPattern(term string) string {
	return "%" + EscapeLikePattern(term) + "%"
}
