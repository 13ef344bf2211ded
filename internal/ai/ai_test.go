package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGen struct {
	text  string
	err   error
	delay time.Duration
}

func (s *stubGen) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestAdapterTruncatesOversizeResponse(t *testing.T) {
	a := NewAdapter(&stubGen{text: strings.Repeat("x", 500)}, time.Second, 100)
	got, err := a.Generate("", "prompt", 64)
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestAdapterTimeout(t *testing.T) {
	a := NewAdapter(&stubGen{text: "late", delay: 200 * time.Millisecond}, 20*time.Millisecond, 1000)
	_, err := a.Generate("", "prompt", 64)
	assert.Error(t, err)
}

func TestAdapterDisabled(t *testing.T) {
	a := NewAdapter(nil, time.Second, 1000)
	assert.False(t, a.Enabled())
	_, err := a.Generate("", "prompt", 64)
	assert.Error(t, err)
}

func TestChatOrFallbackDeterministic(t *testing.T) {
	a := NewAdapter(nil, time.Second, 1000)
	one := a.ChatOrFallback("Eldermoor", "", "greet the guard", 64)
	two := a.ChatOrFallback("Eldermoor", "", "greet the guard", 64)
	assert.Equal(t, one, two, "same seed, same output")
	assert.NotEmpty(t, one)

	other := a.ChatOrFallback("Eldermoor", "", "ask about the weather", 64)
	// Different prompts may collide on a small table, but the seed differs.
	assert.NotEqual(t, Seed("Eldermoor", "greet the guard"), Seed("Eldermoor", "ask about the weather"))
	_ = other
}

func TestFallbackNPCDeterministic(t *testing.T) {
	n1, d1 := FallbackNPC("Eldermoor", "tavern regular")
	n2, d2 := FallbackNPC("Eldermoor", "tavern regular")
	assert.Equal(t, n1, n2)
	assert.Equal(t, d1, d2)
	assert.NotEmpty(t, n1)
	assert.NotEmpty(t, d1)
}

func TestExtractJSON(t *testing.T) {
	text := "Here is the plan:\n[{\"tool\": \"emote\", \"args\": {}}]\nHope that helps!"
	assert.Equal(t, `[{"tool": "emote", "args": {}}]`, ExtractJSON(text))

	// Truncated output still yields the tail from the opener.
	trunc := `thinking... [{"tool": "get_object", "args": {"object_name": "app`
	assert.True(t, strings.HasPrefix(ExtractJSON(trunc), "[{"))

	assert.Equal(t, "", ExtractJSON("no json here"))

	obj := `prefix {"name": "Mira", "description": "a [scribe]"} suffix`
	assert.Equal(t, `{"name": "Mira", "description": "a [scribe]"}`, ExtractJSON(obj))
}
