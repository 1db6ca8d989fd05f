package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// likeMatch interprets a LIKE pattern with backslash escapes the way
// Postgres does for `LIKE ... ESCAPE '\'`.
func likeMatch(pattern, s string) bool {
	p := []rune(pattern)
	str := []rune(s)
	var match func(pi, si int) bool
	match = func(pi, si int) bool {
		for pi < len(p) {
			switch p[pi] {
			case '%':
				for k := si; k <= len(str); k++ {
					if match(pi+1, k) {
						return true
					}
				}
				return false
			case '_':
				if si >= len(str) {
					return false
				}
				pi++
				si++
			case '\\':
				if pi+1 >= len(p) || si >= len(str) || p[pi+1] != str[si] {
					return false
				}
				pi += 2
				si++
			default:
				if si >= len(str) || p[pi] != str[si] {
					return false
				}
				pi++
				si++
			}
		}
		return si == len(str)
	}
	return match(0, 0)
}

func TestEscapeLikePattern(t *testing.T) {
	cases := map[string]string{
		"plain":   "plain",
		"50%":     `50\%`,
		"a_b":     `a\_b`,
		`C:\path`: `C:\\path`,
		`%_\`:     `\%\_\\`,
		"":        "",
		"中文_100%": `中文\_100\%`,
	}
	for input, want := range cases {
		assert.Equal(t, want, EscapeLikePattern(input), input)
	}
}

func TestEscapeLikePatternMatchesOnlyLiteral(t *testing.T) {
	inputs := []string{"50%", "a_b", `back\slash`, `%%`, `_\_`, "100% off_now", `\%`}
	decoys := []string{"500", "axb", "backslash", "x", "a", "", "100x offXnow", `\x`, "abc"}

	for _, input := range inputs {
		pattern := EscapeLikePattern(input)
		assert.True(t, likeMatch(pattern, input), "pattern %q should match %q", pattern, input)
		for _, decoy := range decoys {
			if decoy == input {
				continue
			}
			assert.False(t, likeMatch(pattern, decoy), "pattern %q must not match %q", pattern, decoy)
		}
		assert.True(t, likeMatch(containsPattern(input), "prefix "+input+" suffix"))
	}
}

func TestLikeMatcherSanity(t *testing.T) {
	assert.True(t, likeMatch("a%", "abc"))
	assert.True(t, likeMatch("a_c", "abc"))
	assert.False(t, likeMatch(`a\_c`, "abc"))
	assert.True(t, likeMatch(`a\_c`, "a_c"))
}
