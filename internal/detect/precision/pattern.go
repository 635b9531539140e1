package precision

import (
	"fmt"
	"sort"
	"strings"

	"episplit/internal/detect"
)

// Token is one element of a boundary pattern.
type Token int

const (
	// TokenCredits matches a merged block of credits detections.
	TokenCredits Token = iota
	// TokenLogo matches a merged block of logo detections.
	TokenLogo
	// TokenSplit marks where the episode boundary falls. It matches a
	// temporal gap between blocks, not a block.
	TokenSplit
)

// String implements fmt.Stringer.
func (t Token) String() string {
	switch t {
	case TokenCredits:
		return "credits"
	case TokenLogo:
		return "logo"
	case TokenSplit:
		return "split"
	default:
		return "unknown"
	}
}

// splitGapFactor scales the grouping buffer into the minimum gap the split
// marker requires between its neighboring blocks.
const splitGapFactor = 2

// Pattern is a boundary pattern parsed into typed tokens. Parsing happens
// once at configuration time; matching never touches the raw string again.
type Pattern struct {
	raw    string
	tokens []Token
}

// ParsePattern parses a dash-separated pattern like "c-l-c-s-l". Exactly
// one split marker is required. An empty string yields a nil pattern.
func ParsePattern(raw string) (*Pattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	var tokens []Token
	splits := 0
	for _, code := range strings.Split(trimmed, "-") {
		switch strings.TrimSpace(code) {
		case "c":
			tokens = append(tokens, TokenCredits)
		case "l":
			tokens = append(tokens, TokenLogo)
		case "s":
			tokens = append(tokens, TokenSplit)
			splits++
		default:
			return nil, fmt.Errorf("pattern %q: unknown element %q", trimmed, code)
		}
	}
	if splits != 1 {
		return nil, fmt.Errorf("pattern %q: need exactly one split marker, got %d", trimmed, splits)
	}
	return &Pattern{raw: trimmed, tokens: tokens}, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.raw }

// Uses reports whether the pattern names the given detection kind. Kinds
// the pattern does not name are discarded before matching.
func (p *Pattern) Uses(kind detect.Kind) bool {
	for _, token := range p.tokens {
		if token == TokenCredits && kind == detect.KindLLMCredits {
			return true
		}
		if token == TokenLogo && kind == detect.KindLLMLogo {
			return true
		}
	}
	return false
}

// Block is a merged group of same-kind detections treated as one unit
// during pattern matching.
type Block struct {
	Kind  detect.Kind
	Start float64
	End   float64
	Count int
}

func (b Block) token() Token {
	if b.Kind == detect.KindLLMCredits {
		return TokenCredits
	}
	return TokenLogo
}

// MergeBlocks folds time-ordered detections into blocks: consecutive
// detections of the same kind within the grouping buffer join the current
// block, anything else opens a new one. Kinds the pattern does not name
// are dropped first.
func MergeBlocks(pattern *Pattern, raws []detect.Raw, buffer float64) []Block {
	filtered := make([]detect.Raw, 0, len(raws))
	for _, raw := range raws {
		if pattern.Uses(raw.Kind) {
			filtered = append(filtered, raw)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp < filtered[j].Timestamp
	})

	var blocks []Block
	for _, raw := range filtered {
		last := len(blocks) - 1
		if last >= 0 && blocks[last].Kind == raw.Kind && raw.Timestamp-blocks[last].End <= buffer {
			blocks[last].End = raw.Timestamp
			blocks[last].Count++
			continue
		}
		blocks = append(blocks, Block{Kind: raw.Kind, Start: raw.Timestamp, End: raw.Timestamp, Count: 1})
	}
	return blocks
}

// Match is the outcome of matching a pattern against a block sequence.
type Match struct {
	// Split is the resolved boundary timestamp.
	Split float64
	// Full reports whether every token matched. A partial match resolves
	// at the point the match broke instead of the split marker.
	Full bool
	// Blocks is how many blocks matched before the pattern completed or broke.
	Blocks int
}

// MatchBlocks matches the pattern left-to-right against the merged blocks.
// Kind tokens consume one block each. The split marker consumes no block:
// it matches a temporal gap of at least splitGapFactor x buffer between its
// neighbors (a leading or trailing marker anchors to the sequence edge).
// A full match splits inside the marker's gap; a partial match splits where
// the match broke, between the last matched block and the next. No blocks
// matched at all means no match.
func (p *Pattern) MatchBlocks(blocks []Block, buffer float64) (Match, bool) {
	blockIdx := 0
	splitAt := -1.0
	for _, token := range p.tokens {
		if token == TokenSplit {
			at, ok := splitGapPosition(blocks, blockIdx, buffer)
			if !ok {
				return p.partial(blocks, blockIdx)
			}
			splitAt = at
			continue
		}
		if blockIdx >= len(blocks) || blocks[blockIdx].token() != token {
			return p.partial(blocks, blockIdx)
		}
		blockIdx++
	}
	return Match{Split: splitAt, Full: true, Blocks: blockIdx}, true
}

// splitGapPosition finds where the split marker lands when the next block
// starts at index idx.
func splitGapPosition(blocks []Block, idx int, buffer float64) (float64, bool) {
	switch {
	case len(blocks) == 0:
		return 0, false
	case idx == 0:
		return blocks[0].Start, true
	case idx >= len(blocks):
		return blocks[len(blocks)-1].End, true
	}
	gap := blocks[idx].Start - blocks[idx-1].End
	if gap < splitGapFactor*buffer {
		return 0, false
	}
	return blocks[idx-1].End + gap/2, true
}

func (p *Pattern) partial(blocks []Block, matched int) (Match, bool) {
	if matched == 0 {
		return Match{}, false
	}
	split := blocks[matched-1].End
	if matched < len(blocks) {
		split = (blocks[matched-1].End + blocks[matched].Start) / 2
	}
	return Match{Split: split, Full: false, Blocks: matched}, true
}
