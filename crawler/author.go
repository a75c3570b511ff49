package crawler

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const AnonymousName = "익명"

var inlineCodeRegex *regexp.Regexp
var truncatedInlineCodeRegex *regexp.Regexp
var anonymousNickRegex *regexp.Regexp

func init() {
	inlineCodeRegex = regexp.MustCompile(`\(([^()\s]{1,64})\)\s*$`)
	truncatedInlineCodeRegex = regexp.MustCompile(`\(([^()\s]{1,64})$`)
	anonymousNickRegex = regexp.MustCompile(`^ㅇㅇ(\d*)$`)
}

// NormalizeAuthor splits a display name like "닉네임(abc)" into the name and its identifier code.
// A code found structurally in the markup takes precedence over the inline one.
func NormalizeAuthor(raw string, structuralCode string) (name string, code string) {
	name, inlineCode := splitInlineCode(norm.NFC.String(raw))
	code = cleanAuthorCode(structuralCode)
	if code == "" {
		code = cleanAuthorCode(inlineCode)
	}

	if name == "" {
		return AnonymousName, code
	}
	if match := anonymousNickRegex.FindStringSubmatch(name); match != nil {
		return AnonymousName + match[1], code
	}
	if strings.HasSuffix(name, "갤러") {
		return AnonymousName, code
	}
	return name, code
}

func splitInlineCode(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	for _, regex := range []*regexp.Regexp{inlineCodeRegex, truncatedInlineCodeRegex} {
		if loc := regex.FindStringSubmatchIndex(raw); loc != nil {
			return strings.TrimSpace(raw[:loc[0]]), strings.TrimSpace(raw[loc[2]:loc[3]])
		}
	}
	return raw, ""
}

func cleanAuthorCode(code string) string {
	value := strings.TrimSpace(code)
	if len(value) > 2 && strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}
	return value
}

// IsReplyParent tells whether a comment parent id points at another comment. 0 and 1 are
// placeholders the mobile payload uses for top-level comments.
func IsReplyParent(parentId string) bool {
	value := strings.ToLower(strings.TrimSpace(parentId))
	switch value {
	case "", "0", "1", "none", "null":
		return false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false
	}
	return id > 1
}
