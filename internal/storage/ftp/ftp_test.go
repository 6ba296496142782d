package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/storagetest"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    Location
		wantErr bool
	}{
		{raw: "ftp://example.com/backup/", want: Location{Addr: "example.com:21", Dir: "/backup/"}},
		{raw: "ftp://example.com:2121/a/b/", want: Location{Addr: "example.com:2121", Dir: "/a/b/"}},
		{raw: "ftp://example.com/backup", wantErr: true},
		{raw: "ftp://example.com/", wantErr: true},
		{raw: "http://example.com/backup/", wantErr: true},
		{raw: "ftp:///backup/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &textproto.Error{Code: 550, Msg: "no such file"})))
	assert.False(t, isNotFound(&textproto.Error{Code: 530, Msg: "not logged in"}))
	assert.False(t, isNotFound(os.ErrNotExist))
}

type transfer struct {
	io.Reader
	closeErr error
	closed   bool
}

func (t *transfer) Close() error {
	t.closed = true
	return t.closeErr
}

func TestReadTransfer(t *testing.T) {
	ok := &transfer{Reader: strings.NewReader("payload")}
	data, err := readTransfer(ok)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.True(t, ok.closed)

	aborted := &transfer{
		Reader:   strings.NewReader("partial"),
		closeErr: &textproto.Error{Code: 426, Msg: "connection closed; transfer aborted"},
	}
	data, err = readTransfer(aborted)
	assert.Nil(t, data)
	var te *textproto.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 426, te.Code)
	assert.True(t, aborted.closed)

	failing := &transfer{Reader: iotest.ErrReader(errors.New("reset")), closeErr: errors.New("late")}
	_, err = readTransfer(failing)
	assert.EqualError(t, err, "reset", "the read error wins")
	assert.True(t, failing.closed)
}

// TestContract runs against a live server when BVAULT_TEST_FTP_URL is set,
// e.g. ftp://localhost:2121/bvault-test/.
func TestContract(t *testing.T) {
	base := os.Getenv("BVAULT_TEST_FTP_URL")
	if base == "" {
		t.Skip("BVAULT_TEST_FTP_URL not set")
	}
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		cfg := Config{
			URL:      fmt.Sprintf("%s%d/", base, time.Now().UnixNano()),
			Username: os.Getenv("BVAULT_TEST_FTP_USER"),
			Password: os.Getenv("BVAULT_TEST_FTP_PASSWORD"),
		}
		s, err := New(context.Background(), cfg, true)
		require.NoError(t, err)
		return s
	})
}
