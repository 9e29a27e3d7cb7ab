package memory

import (
	"go.uber.org/zap"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens for prompt budgeting.
type Tokenizer interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// Count returns the exact token count under the configured encoding.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates token counts from character counts when
// no encoding is available. Roughly four latin characters per token;
// CJK characters count as one token each.
type EstimateCounter struct{}

// Count returns the estimated token count.
func (EstimateCounter) Count(text string) int {
	latin, cjk := 0, 0
	for _, r := range text {
		if r >= 0x2E80 && r <= 0x9FFF {
			cjk++
		} else {
			latin++
		}
	}
	n := latin/4 + cjk
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// NewTokenizer returns a counter for the encoding, degrading to the
// character estimator when the encoding cannot be loaded.
func NewTokenizer(encoding string, logger *zap.Logger) Tokenizer {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("tokenizer encoding unavailable, using character estimator",
			zap.String("encoding", encoding),
			zap.Error(err),
		)
		return EstimateCounter{}
	}
	return &TiktokenCounter{enc: enc}
}
