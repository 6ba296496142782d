package units

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"4096", 4096, false},
		{"1b", 1, false},
		{"64k", 64 * KiB, false},
		{"64 kb", 64 * KiB, false},
		{"1mb", MiB, false},
		{"1M", MiB, false},
		{"2Gi", 2 * GiB, false},
		{"1.5m", MiB + MiB/2, false},
		{"", 0, true},
		{"lots", 0, true},
		{"10 parsecs", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"30", 30 * time.Second, false},
		{"1 min", time.Minute, false},
		{"2 hours", 2 * time.Hour, false},
		{"1day", 24 * time.Hour, false},
		{"1 week", 7 * 24 * time.Hour, false},
		{"soon", 0, true},
		{"3 fortnights", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("1mb")))
	assert.Equal(t, MiB, b)
	assert.Equal(t, "1.00MiB", b.String())
	require.Error(t, b.UnmarshalText([]byte("x")))
}
