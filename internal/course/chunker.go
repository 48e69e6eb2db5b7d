package course

import "fmt"

// Default chunking parameters. 800-character windows with 100 characters of
// overlap keep enough surrounding context for retrieval without bloating the
// index.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Chunker splits lesson bodies into overlapping character windows.
//
// For a body of length L (in runes), chunk size C and overlap O (O < C),
// the chunker produces ceil((L-O)/(C-O)) windows when L > C, and exactly
// one otherwise. Consecutive windows share exactly O characters; the final
// window may be shorter. The character contract is authoritative: windows
// are never shifted to land on word boundaries, since that would break the
// overlap guarantee downstream consumers rely on. Splitting on runes keeps
// multi-byte characters intact.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker with the given window size and overlap,
// both in characters. Overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the overlapping windows for a single body of text.
// An empty body yields no windows.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	stride := c.size - c.overlap
	var windows []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}
