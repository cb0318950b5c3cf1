// Package words holds the word bank offered to drawers. The default list is
// embedded at build time; a CSV on disk can replace it via configuration.
package words

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"k8s.io/utils/set"

	"github.com/sketchroom/backend/internal/v1/clock"
)

//go:embed words.csv
var embeddedWords []byte

// Word is a single bank entry with its category tag.
type Word struct {
	Text     string
	Category string
}

// Bank is an immutable, order-preserving word list. It is built once at
// startup and shared read-only by every room.
type Bank struct {
	words      []Word
	categories []string
}

// Default builds the bank from the embedded word list.
func Default() (*Bank, error) {
	return Load(bytes.NewReader(embeddedWords))
}

// LoadFile builds the bank from a word,category CSV on disk.
func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word bank: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses word,category rows. A header row is expected and skipped.
// Words are lower-cased and de-duplicated; the first occurrence wins.
func Load(r io.Reader) (*Bank, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse word bank csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("word bank is empty")
	}

	b := &Bank{}
	seen := set.New[string]()
	cats := set.New[string]()
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != 2 {
			return nil, fmt.Errorf("word bank row %d: expected 2 columns, got %d", i+1, len(rec))
		}
		text := strings.ToLower(strings.TrimSpace(rec[0]))
		category := strings.ToLower(strings.TrimSpace(rec[1]))
		if text == "" || category == "" {
			return nil, fmt.Errorf("word bank row %d: empty word or category", i+1)
		}
		if seen.Has(text) {
			continue
		}
		seen.Insert(text)
		cats.Insert(category)
		b.words = append(b.words, Word{Text: text, Category: category})
	}

	if len(b.words) == 0 {
		return nil, fmt.Errorf("word bank is empty")
	}

	b.categories = cats.UnsortedList()
	sort.Strings(b.categories)
	return b, nil
}

// Len returns the number of words in the bank.
func (b *Bank) Len() int {
	return len(b.words)
}

// Categories returns the distinct category tags in sorted order.
func (b *Bank) Categories() []string {
	out := make([]string, len(b.categories))
	copy(out, b.categories)
	return out
}

// CategoryCounts returns the number of words per category.
func (b *Bank) CategoryCounts() map[string]int {
	counts := make(map[string]int, len(b.categories))
	for _, w := range b.words {
		counts[w.Category]++
	}
	return counts
}

// Pick samples up to n distinct words uniformly without replacement from the
// bank minus the used set. Fewer than n candidates yields however many
// remain; zero candidates yields nil.
func (b *Bank) Pick(r *clock.Rand, n int, used set.Set[string]) []string {
	candidates := make([]string, 0, len(b.words))
	for _, w := range b.words {
		if used != nil && used.Has(w.Text) {
			continue
		}
		candidates = append(candidates, w.Text)
	}
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	picked := make([]string, 0, n)
	for _, idx := range r.Perm(len(candidates))[:n] {
		picked = append(picked, candidates[idx])
	}
	return picked
}
