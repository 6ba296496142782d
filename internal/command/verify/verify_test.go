package verify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keshon/bvault/internal/repo/store/block"
)

func TestPrintGrid(t *testing.T) {
	checks := make([]block.BlockCheck, 0, lineWidth+2)
	for i := 0; i < lineWidth; i++ {
		checks = append(checks, block.BlockCheck{Status: block.OK})
	}
	checks = append(checks,
		block.BlockCheck{Status: block.Missing},
		block.BlockCheck{Status: block.UnknownCodec},
	)

	var buf bytes.Buffer
	counts := printGrid(&buf, checks)

	assert.Equal(t, lineWidth, counts[block.OK])
	assert.Equal(t, 1, counts[block.Missing])
	assert.Equal(t, 1, counts[block.UnknownCodec])
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "  100"))
	assert.True(t, strings.HasSuffix(lines[1], "  102"))
}

func TestPrintGridEmpty(t *testing.T) {
	var buf bytes.Buffer
	printGrid(&buf, nil)
	assert.Empty(t, buf.String())
}
