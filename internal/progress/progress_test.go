package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestFinishReportsCount(t *testing.T) {
	var out syncBuffer
	p := NewProgress(&out, 0, "Scanning", "files")
	for i := 0; i < 3; i++ {
		p.Increment()
	}
	p.Finish()

	assert.Contains(t, out.String(), "✓ Scanning (3 files,")
}

func TestSetCurrent(t *testing.T) {
	var out syncBuffer
	p := NewProgress(&out, 10, "Checking", "blocks")
	p.SetCurrent(7)
	p.Finish()

	assert.Contains(t, out.String(), "(7 blocks,")
}
