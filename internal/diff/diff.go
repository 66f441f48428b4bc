// Package diff renders unified diffs for the optimizer report. It uses
// github.com/pmezard/go-difflib/difflib to produce classic unified patches
// (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Options controls patch generation behavior.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded,
	// a minimal placeholder patch is returned and oversize=true.
	// 0 means "no limit".
	MaxBytes int

	// Context controls the number of context lines in unified hunks.
	// If 0, default to 4.
	Context int
}

// Unified produces a classic unified patch for a↦b.
// Returns the patch body and a flag indicating it was omitted due to size.
// Identical inputs yield an empty body.
func Unified(aName, bName string, a, b []byte, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && (len(a)+len(b)) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	return unifiedLines(aName, bName, splitLinesKeepNL(string(a)), splitLinesKeepNL(string(b)), opt), false
}

// Strings diffs two string lists one element per line, as used for string
// pools. Elements are escaped so embedded newlines cannot split a line.
func Strings(aName, bName string, a, b []string, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && (size(a)+size(b)) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	return unifiedLines(aName, bName, poolLines(a), poolLines(b), opt), false
}

func unifiedLines(aName, bName string, a, b []string, opt Options) string {
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 4
	}
	u := difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName)
	}
	return s
}

// poolLines renders "<index>\t<quoted value>\n" per element so that hunks
// show which index changed.
func poolLines(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%d\t%q\n", i, s)
	}
	return out
}

func size(ss []string) int {
	n := 0
	for _, s := range ss {
		n += len(s)
	}
	return n
}

// splitLinesKeepNL splits into lines and keeps newline characters,
// which produces better unified hunks.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
