// Package ftp stores repository keys as files in a directory of an FTP
// server.
package ftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
)

const (
	defaultPort = "21"
	keepFile    = ".keep"
	dialTimeout = 30 * time.Second
)

// Config describes how to reach the repository directory.
type Config struct {
	// URL is ftp://host[:port]/path/ with a trailing slash and non-empty path.
	URL      string
	Username string
	Password string
}

// Location is the parsed form of Config.URL.
type Location struct {
	Addr string
	Dir  string
}

// ParseURL validates an ftp:// repository URL.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse ftp url %q: %w", raw, err)
	}
	if u.Scheme != "ftp" {
		return Location{}, fmt.Errorf("ftp url %q: scheme must be ftp", raw)
	}
	if u.Hostname() == "" {
		return Location{}, fmt.Errorf("ftp url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") || strings.Trim(u.Path, "/") == "" {
		return Location{}, fmt.Errorf("ftp url %q: path must be non-empty and end with /", raw)
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return Location{Addr: net.JoinHostPort(u.Hostname(), port), Dir: u.Path}, nil
}

type Store struct {
	mu   sync.Mutex
	conn *ftp.ServerConn
	dir  string
}

// New connects and logs in. With create set the directory and its marker
// file are created when missing.
func New(ctx context.Context, cfg Config, create bool) (*Store, error) {
	loc, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	conn, err := ftp.Dial(loc.Addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", loc.Addr, err)
	}
	user := cfg.Username
	if user == "" {
		user = "anonymous"
	}
	if err := conn.Login(user, cfg.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("login %s: %w", loc.Addr, err)
	}

	s := &Store{conn: conn, dir: loc.Dir}
	if create {
		if err := s.makeDir(); err != nil {
			conn.Quit()
			return nil, err
		}
	}
	logger.Debug("ftp storage connected", logger.KeyBackend, loc.Addr, logger.KeyPath, loc.Dir)
	return s, nil
}

func (s *Store) makeDir() error {
	var cur string
	for _, seg := range strings.Split(strings.Trim(s.dir, "/"), "/") {
		cur += "/" + seg
		// Existing directories answer 550 too; the marker write below is
		// what decides success.
		_ = s.conn.MakeDir(cur)
	}
	if err := s.conn.Stor(path.Join(s.dir, keepFile), bytes.NewReader(nil)); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return path.Join(s.dir, storage.EncodeName(key))
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names, err := s.conn.NameList(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		n = path.Base(n)
		if strings.HasPrefix(n, ".") {
			continue
		}
		key, err := storage.DecodeName(n)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) Store(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Stor(s.path(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (s *Store) Retrieve(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, err := s.conn.Retr(s.path(key))
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("retrieve %q: %w", key, err)
	}
	data, err := readTransfer(resp)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", key, err)
	}
	return data, nil
}

// readTransfer drains a data connection and closes it. The server's final
// reply arrives on Close, so a transfer is only complete when Close succeeds.
func readTransfer(rc io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Delete(s.path(key)); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Quit()
}

func isNotFound(err error) bool {
	var te *textproto.Error
	return errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable
}
