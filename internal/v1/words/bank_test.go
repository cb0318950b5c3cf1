package words

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/set"

	"github.com/sketchroom/backend/internal/v1/clock"
)

func TestDefault(t *testing.T) {
	t.Run("should load the embedded bank", func(t *testing.T) {
		b, err := Default()
		require.NoError(t, err)
		assert.Greater(t, b.Len(), 100, "embedded bank should be large enough for long games")
		assert.NotEmpty(t, b.Categories())
	})

	t.Run("should lower-case every embedded word", func(t *testing.T) {
		b, err := Default()
		require.NoError(t, err)
		picked := b.Pick(clock.NewRand(1), b.Len(), nil)
		for _, w := range picked {
			assert.Equal(t, strings.ToLower(w), w)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("should parse word and category rows", func(t *testing.T) {
		b, err := Load(strings.NewReader("word,category\ncat,animals\ndog,animals\npizza,food\n"))
		require.NoError(t, err)
		assert.Equal(t, 3, b.Len())
		assert.Equal(t, []string{"animals", "food"}, b.Categories())
		assert.Equal(t, map[string]int{"animals": 2, "food": 1}, b.CategoryCounts())
	})

	t.Run("should normalize case and whitespace", func(t *testing.T) {
		b, err := Load(strings.NewReader("word,category\n  Cat ,Animals\n"))
		require.NoError(t, err)
		picked := b.Pick(clock.NewRand(1), 1, nil)
		require.Len(t, picked, 1)
		assert.Equal(t, "cat", picked[0])
		assert.Equal(t, []string{"animals"}, b.Categories())
	})

	t.Run("should drop duplicate words keeping first category", func(t *testing.T) {
		b, err := Load(strings.NewReader("word,category\ncat,animals\nCAT,food\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, b.Len())
		assert.Equal(t, map[string]int{"animals": 1}, b.CategoryCounts())
	})

	t.Run("should reject an empty bank", func(t *testing.T) {
		_, err := Load(strings.NewReader("word,category\n"))
		assert.Error(t, err)
	})

	t.Run("should reject malformed rows", func(t *testing.T) {
		_, err := Load(strings.NewReader("word,category\ncat,animals,extra\n"))
		assert.Error(t, err)

		_, err = Load(strings.NewReader("word,category\n ,animals\n"))
		assert.Error(t, err)
	})
}

func TestBankPick(t *testing.T) {
	mustLoad := func(t *testing.T, rows string) *Bank {
		t.Helper()
		b, err := Load(strings.NewReader("word,category\n" + rows))
		require.NoError(t, err)
		return b
	}

	t.Run("should return n distinct unused words", func(t *testing.T) {
		b := mustLoad(t, "cat,animals\ndog,animals\nfox,animals\nowl,animals\nbee,animals\n")
		picked := b.Pick(clock.NewRand(42), 3, nil)
		require.Len(t, picked, 3)

		distinct := set.New(picked...)
		assert.Equal(t, 3, distinct.Len())
	})

	t.Run("should never return a used word", func(t *testing.T) {
		b := mustLoad(t, "cat,animals\ndog,animals\nfox,animals\nowl,animals\n")
		used := set.New("cat", "fox")
		for seed := int64(0); seed < 20; seed++ {
			for _, w := range b.Pick(clock.NewRand(seed), 2, used) {
				assert.False(t, used.Has(w), "picked used word %q", w)
			}
		}
	})

	t.Run("should return the remainder when fewer than n are left", func(t *testing.T) {
		b := mustLoad(t, "cat,animals\ndog,animals\nfox,animals\n")
		used := set.New("cat", "dog")
		picked := b.Pick(clock.NewRand(1), 3, used)
		assert.Equal(t, []string{"fox"}, picked)
	})

	t.Run("should return nil when the bank is exhausted", func(t *testing.T) {
		b := mustLoad(t, "cat,animals\ndog,animals\n")
		used := set.New("cat", "dog")
		assert.Nil(t, b.Pick(clock.NewRand(1), 3, used))
	})

	t.Run("should be deterministic for a fixed seed", func(t *testing.T) {
		b := mustLoad(t, "cat,animals\ndog,animals\nfox,animals\nowl,animals\nbee,animals\n")
		first := b.Pick(clock.NewRand(7), 3, nil)
		second := b.Pick(clock.NewRand(7), 3, nil)
		assert.Equal(t, first, second)
	})
}
