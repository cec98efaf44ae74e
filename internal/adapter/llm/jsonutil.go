package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// fencedObjectRe matches a JSON object inside a markdown code fence.
	fencedObjectRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// bareObjectRe is the greedy fallback for an object surrounded by prose.
	bareObjectRe    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

var errNoJSON = errors.New("no JSON object in model output")

// decodeModelJSON pulls the first JSON object out of a model reply and
// decodes it into v. Code fences, line comments and trailing commas are tolerated.
func decodeModelJSON(content string, v any) error {
	raw := extractObject(content)
	if raw == "" {
		return errNoJSON
	}
	return json.Unmarshal([]byte(raw), v)
}

func extractObject(content string) string {
	var raw string
	if m := fencedObjectRe.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = bareObjectRe.FindString(content)
	}
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaRe.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a // comment that sits outside any string literal.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
