package matcher

// Similarity scores the positional overlap of two strings: the fraction of
// rune positions of the longer string whose rune equals the shorter string's
// rune at the same index. Strings shorter than 3 runes score 0.
//
// This is not an edit distance. A single inserted or dropped rune shifts
// every later position, so "fever" and "ffever" score low.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 3 || len(rb) < 3 {
		return 0
	}

	longer, shorter := ra, rb
	if len(rb) > len(ra) {
		longer, shorter = rb, ra
	}

	matches := 0
	for i := range shorter {
		if longer[i] == shorter[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(longer))
}
