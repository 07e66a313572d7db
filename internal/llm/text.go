package llm

import "strings"

// StripCodeFence removes a markdown code fence (``` or ```json) wrapped
// around a model response. The language tag may be followed by a newline,
// a space, or the payload itself.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = stripFenceTag(strings.TrimPrefix(s, "```"))
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stripFenceTag drops a leading run of letters when it is followed by
// whitespace, the start of a JSON value, or nothing.
func stripFenceTag(s string) string {
	i := 0
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	if i == 0 {
		return s
	}
	rest := s[i:]
	if rest == "" || strings.ContainsRune(" \t\r\n[{", rune(rest[0])) {
		return rest
	}
	return s
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
