// Package sanitizer repairs model output so it has the best possible chance
// of parsing as JSON. Models wrap payloads in markdown fences, prepend prose,
// and truncate mid-structure when they run out of tokens; Clean handles all of
// those without ever failing.
package sanitizer

import (
	"encoding/json"
	"strings"
)

// Clean strips code fences and prose around a JSON payload and repairs common
// truncation defects. It never fails: when repair is impossible the cleaned
// best-effort string is returned and the parse error is left to the caller.
// A syntactically valid JSON input is always returned unchanged.
func Clean(raw string) string {
	text := trimFences(raw)

	if json.Valid([]byte(text)) {
		return text
	}

	if prefix, ok := balancedPrefix(text); ok {
		return prefix
	}

	repaired := closeTruncated(text)
	if json.Valid([]byte(repaired)) {
		return repaired
	}
	return text
}

// trimFences removes surrounding triple-backtick markers and an optional
// language tag. Input without fences passes through untouched so that Clean
// stays idempotent on well-formed JSON.
func trimFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") && !strings.HasSuffix(trimmed, "```") {
		return raw
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		// Drop a language tag like "json" on the opening fence line.
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(trimmed[:nl])
			if firstLine != "" && len(firstLine) <= 16 && !strings.ContainsAny(firstLine, "{}[]\",") {
				trimmed = trimmed[nl+1:]
			}
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// balancedPrefix extracts the longest valid JSON object or array starting at
// the first opening delimiter. It returns false when no balanced structure
// exists, which usually means the payload was truncated.
func balancedPrefix(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}

	var (
		stack    []byte
		inString bool
		escaped  bool
		end      = -1
	)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				i = len(text) // stray closer, stop scanning
				break
			}
			open := stack[len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') {
				i = len(text)
				break
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				end = i // longest balanced prefix so far
			}
		}
	}
	if end < 0 {
		return "", false
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// closeTruncated assumes the payload was cut mid-structure: it discards the
// incomplete trailing element by cutting at a comma, then appends the missing
// closing delimiters in LIFO order. Cut points are tried from the latest
// comma backwards until one yields valid JSON, so as little as possible of
// the payload is lost.
func closeTruncated(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	body := text[start:]

	type cutPoint struct {
		pos   int
		stack []byte
	}
	var (
		stack    []byte
		inString bool
		escaped  bool
		cuts     []cutPoint
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				cuts = append(cuts, cutPoint{pos: i, stack: append([]byte{}, stack...)})
			}
		}
	}

	if len(stack) == 0 {
		return text
	}

	for i := len(cuts) - 1; i >= 0; i-- {
		cut := strings.TrimRight(body[:cuts[i].pos], " \t\r\n,")
		if candidate := cut + closersFor(cuts[i].stack); json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	// No usable comma: keep everything, terminating an unfinished string
	// before closing the open structures.
	cut := strings.TrimRight(body, " \t\r\n,")
	if inString {
		cut += `"`
	}
	return cut + closersFor(stack)
}

func closersFor(open []byte) string {
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
