package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Generator is the single external interface the core needs from a
// language model.
type Generator interface {
	Complete(ctx context.Context, system, userPrompt string, maxTokens int) (string, error)
}

// Adapter wraps a Generator with a hard timeout and a response-size cap,
// and carries the deterministic fallback. A nil inner generator means the
// endpoint is absent; Generate then always errors and callers take their
// offline path or the fallback text.
type Adapter struct {
	gen     Generator
	timeout time.Duration
	maxLen  int

	// Calls counts adapter invocations; tests use it to prove gating.
	Calls int
}

// NewAdapter builds an adapter. gen may be nil (disabled endpoint).
func NewAdapter(gen Generator, timeout time.Duration, maxLen int) *Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Adapter{gen: gen, timeout: timeout, maxLen: maxLen}
}

// Enabled reports whether a generator is configured.
func (a *Adapter) Enabled() bool {
	if a == nil || a.gen == nil {
		return false
	}
	if c, ok := a.gen.(*Client); ok {
		return c.Enabled()
	}
	return true
}

// Generate invokes the endpoint with the adapter's timeout. Oversize
// responses are truncated to the cap, not rejected; parsers attempt
// best-effort extraction on truncated output.
func (a *Adapter) Generate(system, prompt string, maxTokens int) (string, error) {
	a.Calls++
	if !a.Enabled() {
		return "", context.DeadlineExceeded
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	text, err := a.gen.Complete(ctx, system, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	if len(text) > a.maxLen {
		slog.Warn("AI response truncated", "length", len(text), "cap", a.maxLen)
		text = text[:a.maxLen]
	}
	return text, nil
}

// ChatOrFallback returns model text for a dialogue prompt, substituting the
// deterministic fallback when the endpoint is absent or fails. Fallback use
// is logged, never surfaced to the actor.
func (a *Adapter) ChatOrFallback(worldName, system, prompt string, maxTokens int) string {
	if a != nil && a.Enabled() {
		text, err := a.Generate(system, prompt, maxTokens)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		slog.Warn("AI chat failed, using fallback", "error", err)
	}
	return FallbackText(worldName, prompt)
}

// ExtractJSON pulls the first top-level JSON array or object out of model
// text, tolerating prose before and after and unterminated tails from
// truncation.
func ExtractJSON(text string) string {
	start := -1
	var opener, closer byte
	for i := 0; i < len(text); i++ {
		if text[i] == '[' || text[i] == '{' {
			start = i
			opener = text[i]
			if opener == '[' {
				closer = ']'
			} else {
				closer = '}'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	// Truncated: return what we have from the opener on.
	return text[start:]
}
