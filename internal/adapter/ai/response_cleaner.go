// Package ai provides response cleaning utilities for free-text LLM replies.
package ai

import (
	"regexp"
	"strings"
)

var (
	fenceLine = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_-]*[ \t]*$\n?")
	boldSpan  = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	// "## 1. Question" or "### OVERALL_SCORE:" style headings.
	headingMark = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
)

// ResponseCleaner normalises model output before line-oriented parsing.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// Clean removes markdown decoration that would hide numbered lines or
// FIELD: markers from the parsers. Content is otherwise left untouched.
func (rc *ResponseCleaner) Clean(response string) string {
	response = strings.ReplaceAll(response, "\r\n", "\n")
	response = rc.removeMarkdownFences(response)
	response = rc.removeEmphasis(response)
	return strings.TrimSpace(response)
}

func (rc *ResponseCleaner) removeMarkdownFences(response string) string {
	return fenceLine.ReplaceAllString(response, "")
}

func (rc *ResponseCleaner) removeEmphasis(response string) string {
	response = boldSpan.ReplaceAllString(response, "$1")
	return headingMark.ReplaceAllString(response, "")
}
