package normalize

import (
	"sort"
	"strings"
)

// MaxAbstractWords bounds the size of a reconstructed abstract.
const MaxAbstractWords = 350

// ReconstructAbstract rebuilds text from a word to positions inverted index. Each word is
// placed once, at its smallest position; ties are broken lexically.
func ReconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type placed struct {
		word string
		pos  int
	}
	words := make([]placed, 0, len(index))
	for word, positions := range index {
		if len(positions) == 0 {
			continue
		}
		minPos := positions[0]
		for _, p := range positions[1:] {
			if p < minPos {
				minPos = p
			}
		}
		words = append(words, placed{word: word, pos: minPos})
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].pos != words[j].pos {
			return words[i].pos < words[j].pos
		}
		return words[i].word < words[j].word
	})

	if len(words) > MaxAbstractWords {
		words = words[:MaxAbstractWords]
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.word)
	}
	return b.String()
}
