// Package wordlist provides the fixed dictionary used to map 16-bit
// indices to pronounceable words and back. The ordering of the embedded
// word list is part of the wire format and must never change.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	_ "embed"
)

// Size is the number of words in a List. It is a power of two so that
// an index fits exactly into 16 bits.
const Size = 65536

// Possible errors due to bad input.
var (
	errShortList     = errors.New("wordlist: resource contains fewer words than the dictionary size")
	errIndexRange    = errors.New("wordlist: index out of range")
	errUnknownWord   = errors.New("wordlist: word not present in dictionary")
	errDuplicateWord = errors.New("wordlist: duplicate word in resource")
)

//go:embed words.txt
var embedded string

// A List is an immutable ordered dictionary of Size distinct lowercase
// words. A List may be shared by any number of concurrent callers.
type List struct {
	words   []string
	indices map[string]int
}

// New parses a word-list text resource: one word per line, blank lines
// ignored, surrounding whitespace trimmed, words folded to lowercase.
// The first Size non-empty lines define the dictionary; the resource
// must contain at least that many distinct entries.
func New(r io.Reader) (*List, error) {
	l := &List{
		words:   make([]string, 0, Size),
		indices: make(map[string]int, Size),
	}

	s := bufio.NewScanner(r)
	for s.Scan() && len(l.words) < Size {
		w := strings.ToLower(strings.TrimSpace(s.Text()))
		if w == "" {
			continue
		}

		if _, ok := l.indices[w]; ok {
			return nil, fmt.Errorf("%w: %q", errDuplicateWord, w)
		}

		l.indices[w] = len(l.words)
		l.words = append(l.words, w)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	if len(l.words) < Size {
		return nil, fmt.Errorf("%w: found %d, need %d", errShortList, len(l.words), Size)
	}

	return l, nil
}

var embeddedOnce = sync.OnceValues(func() (*List, error) {
	return New(strings.NewReader(embedded))
})

// Embedded returns the List built from the word-list resource compiled
// into the binary. The List is built once and shared by all callers.
func Embedded() (*List, error) { return embeddedOnce() }

// Word returns the word stored at index. It fails when index is
// negative or at least Len.
func (l *List) Word(index int) (string, error) {
	if index < 0 || index >= len(l.words) {
		return "", fmt.Errorf("%w: %d", errIndexRange, index)
	}

	return l.words[index], nil
}

// Index returns the index of word, accepting any casing by folding to
// lowercase. It fails when the word is absent from the List.
func (l *List) Index(word string) (int, error) {
	i, ok := l.indices[strings.ToLower(word)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownWord, word)
	}

	return i, nil
}

// Len returns the number of words in the List.
func (l *List) Len() int { return len(l.words) }

// IsUnknownWord reports whether err indicates a word absent from a
// List, so callers can attach their own error taxonomy.
func IsUnknownWord(err error) bool { return errors.Is(err, errUnknownWord) }
