// Package units parses the human-readable sizes and durations used in
// configuration files, e.g. "1mb", "64 kb", "2 hours" or "90s".
package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ByteSize is a size in bytes that can be unmarshaled from strings such as
// "1mb", "512k" or "4MiB". Decimal-looking suffixes are binary multiples to
// stay compatible with existing configuration files.
type ByteSize uint64

const (
	B   ByteSize = 1
	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var quantityPattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var sizeUnits = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KiB,
	"kb":  KiB,
	"ki":  KiB,
	"kib": KiB,
	"m":   MiB,
	"mb":  MiB,
	"mi":  MiB,
	"mib": MiB,
	"g":   GiB,
	"gb":  GiB,
	"gi":  GiB,
	"gib": GiB,
	"t":   TiB,
	"tb":  TiB,
	"ti":  TiB,
	"tib": TiB,
}

var durationUnits = map[string]time.Duration{
	"":        time.Second,
	"s":       time.Second,
	"sec":     time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"w":       7 * 24 * time.Hour,
	"week":    7 * 24 * time.Hour,
	"weeks":   7 * 24 * time.Hour,
}

// ParseByteSize parses a size like "1mb" or "65536".
func ParseByteSize(s string) (ByteSize, error) {
	num, unit, err := splitQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("parse size %q: unknown unit %q", s, unit)
	}
	return ByteSize(num * float64(mult)), nil
}

// ParseDuration accepts Go duration syntax ("1h30m") as well as a single
// number followed by a unit word ("2 hours", "1 week"). A bare number is
// a count of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d, nil
	}
	num, unit, err := splitQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	mult, ok := durationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("parse duration %q: unknown unit %q", s, unit)
	}
	return time.Duration(num * float64(mult)), nil
}

func splitQuantity(s string) (float64, string, error) {
	if strings.TrimSpace(s) == "" {
		return 0, "", fmt.Errorf("empty value")
	}
	m := quantityPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("invalid format")
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid number %q", m[1])
	}
	return num, strings.ToLower(m[2]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

func (b ByteSize) String() string {
	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2fTiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", b)
	}
}

func (b ByteSize) Int() int { return int(b) }
