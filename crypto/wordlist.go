package crypto

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"
)

//go:embed wordlists/blacklist.txt
var blacklistText string

//go:embed wordlists/words.txt
var wordsText string

type wordLists struct {
	black *regexp.Regexp
	words *regexp.Regexp
	size  int
}

var (
	listsOnce sync.Once
	lists     *wordLists
)

func loadWordLists() *wordLists {
	listsOnce.Do(func() {
		black := strings.Fields(blacklistText)
		words := strings.Fields(wordsText)
		lists = &wordLists{
			black: alternation(black),
			words: alternation(words),
			size:  len(black) + len(words),
		}
	})
	return lists
}

// alternation builds a regexp matching any list entry after variant
// reduction. Entries keep their list order, which decides the match when
// several start at the same position.
func alternation(list []string) *regexp.Regexp {
	seen := make(map[string]bool, len(list))
	reduced := make([]string, 0, len(list))
	for _, w := range list {
		r := reduceVariants(w)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		reduced = append(reduced, r)
	}
	for i, w := range reduced {
		reduced[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(strings.Join(reduced, "|"))
}
