// Package keyname replaces resource key names in a package's key string pool
// with a fixed placeholder, sparing names that a whitelist pattern matches.
package keyname

import (
	"fmt"
	"regexp"

	"resopt/internal/arsc"
)

// DefaultPlaceholder is written over every key that no pattern spares.
const DefaultPlaceholder = "opt"

// Whitelist is an ordered list of patterns; each must match a whole key.
type Whitelist struct {
	patterns []string
	res      []*regexp.Regexp
}

// Compile builds a Whitelist. Patterns are anchored at both ends.
func Compile(patterns []string) (*Whitelist, error) {
	wl := &Whitelist{patterns: append([]string(nil), patterns...)}
	for i, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("whitelist[%d] %q: %w", i, p, err)
		}
		wl.res = append(wl.res, re)
	}
	return wl, nil
}

// Match returns the first pattern that fully matches key.
func (w *Whitelist) Match(key string) (string, bool) {
	if w == nil {
		return "", false
	}
	for i, re := range w.res {
		if re.MatchString(key) {
			return w.patterns[i], true
		}
	}
	return "", false
}

// Len returns the number of patterns.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.res)
}

// Hit records a key left untouched and the pattern that spared it.
type Hit struct {
	Index   int
	Key     string
	Pattern string
}

// Result summarizes one pool rewrite.
type Result struct {
	Renamed int   // entries whose value changed
	Kept    []Hit // whitelisted entries in pool order
	Before  []string
	After   []string
}

// Rewrite replaces every key in pool not matched by wl with placeholder.
// Several keys may collapse onto the same placeholder value; the pool keeps
// its length and every index keeps addressing the same entry.
func Rewrite(pool *arsc.StringPool, wl *Whitelist, placeholder string) (Result, error) {
	res := Result{Before: pool.Strings()}
	for i, key := range res.Before {
		if pat, ok := wl.Match(key); ok {
			res.Kept = append(res.Kept, Hit{Index: i, Key: key, Pattern: pat})
			continue
		}
		if key == placeholder {
			continue
		}
		if err := pool.Set(i, placeholder); err != nil {
			return res, err
		}
		res.Renamed++
	}
	res.After = pool.Strings()
	return res, nil
}
