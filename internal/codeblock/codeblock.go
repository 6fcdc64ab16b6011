// Package codeblock strips a Markdown code fence that wraps an entire submission.
package codeblock

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Unwrap returns the literal content of src when src is exactly one closed
// fenced code block (surrounding blank lines allowed). Otherwise src is
// returned unchanged and ok is false.
func Unwrap(src string) (string, bool) {
	if !hasClosingFence(src) {
		return src, false
	}

	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))
	if doc.ChildCount() != 1 {
		return src, false
	}
	fence, ok := doc.FirstChild().(*ast.FencedCodeBlock)
	if !ok {
		return src, false
	}

	var sb strings.Builder
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String(), true
}

// hasClosingFence rejects unterminated fences, which goldmark would run to
// the end of the document.
func hasClosingFence(src string) bool {
	trimmed := strings.TrimSpace(src)
	if !strings.Contains(trimmed, "\n") {
		return false
	}
	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return strings.HasPrefix(last, "```") || strings.HasPrefix(last, "~~~")
}

// ShouldUnwrap reports whether content destined for path may be unwrapped.
// Markdown documents keep their fences.
func ShouldUnwrap(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return false
	}
	return true
}
