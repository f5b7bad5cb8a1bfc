package markdown

import "strings"

// ManagedLines returns the non-empty lines between the markers, if the block exists.
func ManagedLines(body, startMarker, endMarker string) ([]string, bool) {
	start := strings.Index(body, startMarker)
	end := strings.Index(body, endMarker)
	if start < 0 || end <= start {
		return nil, false
	}
	inner := body[start+len(startMarker) : end]
	var lines []string
	for _, line := range strings.Split(inner, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, true
}

// ReplaceManagedBlock swaps the generated block in body, appending it when absent.
// Text outside the markers is preserved.
func ReplaceManagedBlock(body, startMarker, endMarker, generated string) string {
	start := strings.Index(body, startMarker)
	end := strings.Index(body, endMarker)
	block := startMarker + "\n" + generated + "\n" + endMarker

	if start >= 0 && end > start {
		end += len(endMarker)
		return body[:start] + block + body[end:]
	}

	if strings.TrimSpace(body) == "" {
		return block + "\n"
	}
	if strings.HasSuffix(body, "\n") {
		return body + "\n" + block + "\n"
	}
	return body + "\n\n" + block + "\n"
}
