package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/keshon/bvault/internal/codec"
	"github.com/keshon/bvault/internal/units"
)

// Policy decides whether and how one path is backed up.
type Policy struct {
	Skip bool `mapstructure:"skip" yaml:"skip"`
	// Cooldown skips files modified more recently than this.
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	// Period skips files backed up more recently than this.
	Period    time.Duration  `mapstructure:"period" yaml:"period"`
	Compress  string         `mapstructure:"compress" yaml:"compress"`
	Level     int            `mapstructure:"level" yaml:"level"`
	BlockSize units.ByteSize `mapstructure:"blocksize" yaml:"blocksize"`
}

func (p Policy) validate() error {
	if p.Cooldown < 0 || p.Period < 0 {
		return errors.New("cooldown and period must not be negative")
	}
	if p.Level < 0 {
		return fmt.Errorf("level %d must not be negative", p.Level)
	}
	if p.BlockSize == 0 {
		return errors.New("blocksize must be positive")
	}
	return validCompress(p.Compress, p.Level)
}

func validCompress(name string, level int) error {
	c, err := codec.ByName(name)
	if err != nil {
		return err
	}
	return c.ValidLevel(level)
}

// Rule overrides the fields it sets for every path its glob matches.
// Patterns support *, ? and ** segments. A pattern without a slash is
// matched against the base name only.
type Rule struct {
	Match     string          `mapstructure:"match" yaml:"match" validate:"required"`
	Skip      *bool           `mapstructure:"skip" yaml:"skip,omitempty"`
	Cooldown  *time.Duration  `mapstructure:"cooldown" yaml:"cooldown,omitempty"`
	Period    *time.Duration  `mapstructure:"period" yaml:"period,omitempty"`
	Compress  *string         `mapstructure:"compress" yaml:"compress,omitempty"`
	Level     *int            `mapstructure:"level" yaml:"level,omitempty"`
	BlockSize *units.ByteSize `mapstructure:"blocksize" yaml:"blocksize,omitempty"`
}

// validate checks the rule on its own and the codec and level it yields
// when applied over defaults.
func (r Rule) validate(defaults Policy) error {
	if _, err := filepath.Match(r.Match, ""); err != nil {
		return err
	}
	if r.BlockSize != nil && *r.BlockSize == 0 {
		return errors.New("blocksize must be positive")
	}
	if r.Level != nil && *r.Level < 0 {
		return errors.New("level must not be negative")
	}
	if r.Compress != nil || r.Level != nil {
		p := defaults
		r.apply(&p)
		if err := validCompress(p.Compress, p.Level); err != nil {
			return err
		}
	}
	return nil
}

func (r Rule) apply(p *Policy) {
	if r.Skip != nil {
		p.Skip = *r.Skip
	}
	if r.Cooldown != nil {
		p.Cooldown = *r.Cooldown
	}
	if r.Period != nil {
		p.Period = *r.Period
	}
	if r.Compress != nil {
		p.Compress = *r.Compress
	}
	if r.Level != nil {
		p.Level = *r.Level
	}
	if r.BlockSize != nil {
		p.BlockSize = *r.BlockSize
	}
}

// Matches reports whether the rule's pattern selects p.
func (r Rule) Matches(p string) bool {
	clean := filepath.ToSlash(filepath.Clean(p))
	pattern := filepath.ToSlash(r.Match)
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(clean))
		return ok
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(clean, "/"))
}

// Rules resolves the policy of a path: the defaults overlaid by every
// matching rule in order.
type Rules struct {
	Defaults Policy
	List     []Rule
}

// Resolver returns the policy resolver of cfg.
func (c *Config) Resolver() *Rules {
	return &Rules{Defaults: c.Defaults, List: c.Rules}
}

// Apply returns the effective policy for p.
func (r *Rules) Apply(p string) Policy {
	pol := r.Defaults
	for _, rule := range r.List {
		if rule.Matches(p) {
			rule.apply(&pol)
		}
	}
	return pol
}

// matchSegments matches pattern segments recursively; "**" spans any
// number of path segments.
func matchSegments(pats, parts []string) bool {
	for len(pats) > 0 {
		p := pats[0]
		pats = pats[1:]

		if p == "**" {
			if len(pats) == 0 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pats, parts[i:]) {
					return true
				}
			}
			return false
		}

		if len(parts) == 0 {
			return false
		}
		if ok, _ := path.Match(p, parts[0]); !ok {
			return false
		}
		parts = parts[1:]
	}
	return len(parts) == 0
}
