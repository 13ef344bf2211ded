package ai

import (
	"fmt"
	"hash/fnv"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// The fallback generator produces contextually seeded content without any
// endpoint. The seed is hash(worldName ⊕ prompt), so identical inputs give
// identical output; a smooth noise field drives selection so adjacent
// picks vary without feeling uniform-random.

var fallbackNames = []string{
	"Gareth", "Mira", "Tobin", "Ysolde", "Brann", "Ketta", "Dorian",
	"Sable", "Wren", "Olwen", "Petrik", "Nessa", "Halvar", "Ilse",
}

var fallbackRoles = []string{
	"a weathered guard", "a wandering tinker", "a soft-spoken herbalist",
	"a retired soldier", "a curious scribe", "an anxious merchant",
	"a cheerful cook", "a taciturn hunter", "a superstitious fisher",
}

var fallbackMoods = []string{
	"watchful", "weary", "good-humored", "secretive", "restless",
	"melancholy", "stubborn", "kindly",
}

var fallbackReplies = []string{
	"Hm. Strange times in %s, stranger.",
	"I keep my head down and my ears open. You'd do well to do the same.",
	"Ask around the common room; someone always knows something.",
	"The roads aren't what they were. Mind yourself out there.",
	"If you're buying, I'm listening. If not, move along kindly.",
	"There's talk of trouble beyond the walls of %s. Just talk, I hope.",
}

// Seed derives the fallback seed from world name and prompt.
func Seed(worldName, prompt string) int64 {
	h := fnv.New64a()
	h.Write([]byte(worldName))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return int64(h.Sum64())
}

// FallbackText produces a deterministic dialogue/content line for a prompt.
func FallbackText(worldName, prompt string) string {
	noise := opensimplex.New(Seed(worldName, prompt))
	reply := fallbackReplies[pick(noise, 0, len(fallbackReplies))]
	if strings.Contains(reply, "%s") {
		name := worldName
		if name == "" {
			name = "these parts"
		}
		return fmt.Sprintf(reply, name)
	}
	return reply
}

// FallbackNPC produces a deterministic generated character: a name and a
// short description seeded from the world and the request context.
func FallbackNPC(worldName, context string) (name, description string) {
	noise := opensimplex.New(Seed(worldName, context))
	name = fallbackNames[pick(noise, 1, len(fallbackNames))]
	role := fallbackRoles[pick(noise, 2, len(fallbackRoles))]
	mood := fallbackMoods[pick(noise, 3, len(fallbackMoods))]
	description = fmt.Sprintf("%s, %s by disposition.", strings.ToUpper(role[:1])+role[1:], mood)
	return name, description
}

// pick maps a noise sample at a fixed lattice coordinate onto [0, n).
func pick(noise opensimplex.Noise, axis int, n int) int {
	// Eval2 returns [-1, 1]; offset coordinates keep axes decorrelated.
	v := noise.Eval2(float64(axis)*7.13+0.5, float64(axis)*3.71+0.5)
	idx := int((v + 1) / 2 * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
