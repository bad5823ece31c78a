// Package tokencount estimates prompt sizes for the Gemini calls.
//
// Gemini does not publish a local tokenizer, so counts are approximated with
// the cl100k_base BPE from tiktoken-go. The BPE ranks are embedded through the
// offline loader; nothing is downloaded at runtime.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const fallbackEncoding = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens with a per-encoding cache. Safe for concurrent use.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	c.mu.RLock()
	enc, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	c.cache[name] = enc
	return enc, nil
}

// encodingName maps a model id to the BPE used to approximate it.
// "models/gemini-1.5-flash" and "gemini-1.5-flash-latest" both resolve here.
func encodingName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.HasPrefix(model, "gpt-4o"):
		return "o200k_base"
	default:
		return fallbackEncoding
	}
}

// Count returns the approximate token count of text for model. If the
// encoding cannot be loaded it falls back to len/4 and logs at debug.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}
	enc, err := c.encoding(model)
	if err != nil {
		slog.Debug("token encoding unavailable, estimating", slog.String("model", model), slog.Any("error", err))
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
