package utils

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CleanMarkdown strips outer markdown code fences, along with any language tag
// on the opening fence ("```markdown", "```json")
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if len(cleaned) < 6 || !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "```"), "```")
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && isFenceTag(cleaned[:nl]) {
		cleaned = cleaned[nl+1:]
	}
	return strings.TrimSpace(cleaned)
}

func isFenceTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("+-_.", r) {
			return false
		}
	}
	return true
}

// RenderHTML converts Markdown (GFM tables included) to an HTML fragment
func RenderHTML(input string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(CleanMarkdown(input)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
