package chunking

import (
	"strings"
	"unicode/utf8"
)

// Boundary preference, largest semantic unit first. The empty string is the
// hard-cut fallback and must stay last.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter produces overlapping chunks of at most ChunkSize runes, breaking
// on the largest boundary that keeps pieces under the cap.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		separators: defaultSeparators,
	}
}

func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}
	if sep == "" {
		return s.hardCut(text)
	}

	var out []string
	var window []string
	for _, part := range splitKeepSeparator(text, sep) {
		if utf8.RuneCountInString(part) <= s.ChunkSize {
			window = append(window, part)
			continue
		}
		// Oversized piece: flush what fits, recurse with finer boundaries.
		out = append(out, s.merge(window)...)
		window = nil
		out = append(out, s.split(part, rest)...)
	}
	return append(out, s.merge(window)...)
}

// merge packs under-cap pieces into chunks, sliding the window so adjacent
// chunks share up to Overlap runes of trailing content.
func (s *Splitter) merge(parts []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, part := range parts {
		n := utf8.RuneCountInString(part)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.Overlap || (total+n > s.ChunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, part)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the preceding piece so joins reconstruct the original text.
func splitKeepSeparator(text, sep string) []string {
	var parts []string
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			if text != "" {
				parts = append(parts, text)
			}
			return parts
		}
		parts = append(parts, text[:i+len(sep)])
		text = text[i+len(sep):]
	}
}
