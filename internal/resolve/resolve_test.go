package resolve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLadder(t *testing.T) {
	candidates := []string{"oak door", "Oak Door", "iron gate", "garden gate"}

	// Exact wins even when a case-insensitive twin exists.
	got, err := Resolve("Oak Door", candidates)
	require.NoError(t, err)
	assert.Equal(t, "Oak Door", got)

	// Case-insensitive equality must be unique.
	_, err = Resolve("OAK DOOR", candidates)
	assert.Error(t, err)

	// Unique prefix.
	got, err = Resolve("iro", candidates)
	require.NoError(t, err)
	assert.Equal(t, "iron gate", got)

	// Ambiguous substring.
	_, err = Resolve("gate", []string{"iron gate", "garden gate"})
	assert.Error(t, err)

	// Unique substring.
	got, err = Resolve("garden", candidates)
	require.NoError(t, err)
	assert.Equal(t, "garden gate", got)
}

func TestResolveOrderIndependent(t *testing.T) {
	base := []string{"apple", "apricot", "banana", "blueberry", "cherry"}
	want, wantErr := Resolve("ap", base)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Resolve("ap", shuffled)
		assert.Equal(t, want, got)
		assert.Equal(t, wantErr == nil, err == nil)
	}
}

func TestResolveNotFoundSuggestions(t *testing.T) {
	candidates := []string{"tavern", "cavern", "garden", "stable", "cellar", "attic"}
	_, err := Resolve("tavren", candidates)
	require.Error(t, err)
	// Closest by edit distance comes first.
	assert.Contains(t, err.Error(), "tavern")
	assert.Contains(t, err.Error(), "did you mean")
}

func TestResolveRoomHere(t *testing.T) {
	got, err := ResolveRoom("here", "tavern", []string{"start", "tavern"})
	require.NoError(t, err)
	assert.Equal(t, "tavern", got)

	_, err = ResolveRoom("here", "", nil)
	assert.Error(t, err)
}

func TestParsePipe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParsePipe(" a | b | c ", 3))
	assert.Equal(t, []string{"a", "b", ""}, ParsePipe("a|b", 3))
	// Surplus folds into the final part.
	assert.Equal(t, []string{"a", "b | c | d"}, ParsePipe("a|b|c|d", 2))
}

func TestStripHelpers(t *testing.T) {
	assert.Equal(t, "oak door", StripQuotes(`"oak door"`))
	assert.Equal(t, "oak door", StripQuotes("'oak door'"))
	assert.Equal(t, "oak door", StripArticle("the oak door"))
	assert.Equal(t, "apple", StripArticle("an apple"))
	assert.Equal(t, "gate", StripArticle("a gate"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("door", "door"))
	assert.Equal(t, 1, Levenshtein("door", "doors"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, Levenshtein("", "door"))
}
