package provider

import "strings"

// heuristicCounter skips loading the encoding so counts match EstimateTokens.
func heuristicCounter() *TokenCounter {
	c := &TokenCounter{}
	c.once.Do(func() {})
	return c
}

// sliceStream replays fixed chunks, then finishes with final (its Text is
// replaced by the joined chunks) or err.
type sliceStream struct {
	chunks []string
	pos    int
	final  Completion
	err    error
	text   strings.Builder
}

func newSliceStream(chunks []string, final Completion, err error) Stream {
	return &sliceStream{chunks: chunks, pos: -1, final: final, err: err}
}

func (s *sliceStream) Next() bool {
	if s.pos+1 >= len(s.chunks) {
		s.pos = len(s.chunks)
		return false
	}
	s.pos++
	s.text.WriteString(s.chunks[s.pos])
	return true
}

func (s *sliceStream) Chunk() string {
	if s.pos < 0 || s.pos >= len(s.chunks) {
		return ""
	}
	return s.chunks[s.pos]
}

func (s *sliceStream) Completion() (Completion, error) {
	if s.err != nil {
		return Completion{}, s.err
	}
	c := s.final
	c.Text = s.text.String()
	return c, nil
}

func (s *sliceStream) Close() error { return nil }
