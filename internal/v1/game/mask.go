package game

import (
	"strings"
	"unicode"

	"k8s.io/utils/set"

	"github.com/sketchroom/backend/internal/v1/clock"
)

// maskable reports whether a character is hidden in the masked rendering.
// Spaces and punctuation stay visible so multi-word entries keep their shape.
func maskable(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// maskWord renders every maskable character as an underscore, characters
// separated by single spaces: "apple" becomes "_ _ _ _ _".
func maskWord(word string) string {
	runes := []rune(word)
	parts := make([]string, len(runes))
	for i, r := range runes {
		if maskable(r) {
			parts[i] = "_"
		} else {
			parts[i] = string(r)
		}
	}
	return strings.Join(parts, " ")
}

// hintWord renders the masked word with reveal maskable positions uncovered,
// chosen uniformly without replacement. Successive calls sample positions
// independently; a later hint may re-reveal an earlier one.
func hintWord(rng *clock.Rand, word string, reveal int) string {
	runes := []rune(word)

	var candidates []int
	for i, r := range runes {
		if maskable(r) {
			candidates = append(candidates, i)
		}
	}
	if reveal > len(candidates) {
		reveal = len(candidates)
	}

	revealed := set.New[int]()
	if reveal > 0 {
		for _, j := range rng.Perm(len(candidates))[:reveal] {
			revealed.Insert(candidates[j])
		}
	}

	parts := make([]string, len(runes))
	for i, r := range runes {
		if !maskable(r) || revealed.Has(i) {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}
