package text

import "unicode"

// ChunkRunes splits s into consecutive pieces of at most maxRunes runes.
// Each cut is placed right after the last whitespace or punctuation rune
// inside the window so words are not split; a word longer than the window
// is cut hard. Concatenating the chunks yields s unchanged.
// If maxRunes is 0 or s already fits, s is returned as a single chunk.
func ChunkRunes(s string, maxRunes int) []string {
	if s == "" {
		return nil
	}

	runes := []rune(s)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []string{s}
	}

	var chunks []string

	for len(runes) > maxRunes {
		cut := lastBoundary(runes[:maxRunes])
		if cut == 0 {
			cut = maxRunes
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}

// lastBoundary returns the index just past the last boundary rune in w,
// or 0 when w contains none.
func lastBoundary(w []rune) int {
	for i := len(w) - 1; i >= 0; i-- {
		if unicode.IsSpace(w[i]) || IsTerminator(w[i]) {
			return i + 1
		}
	}

	return 0
}
