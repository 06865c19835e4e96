package snapshot

import (
	"regexp"
	"strings"
)

const redacted = "***"

var sensitiveKeyParts = []string{"DATABASE_URL", "PASSWORD", "SECRET", "TOKEN", "API_KEY", "KEY"}

var lineBreakRe = regexp.MustCompile(`\r?\n`)

// MaskEnv turns the text of a dotenv file into a shareable sample: values of
// keys that look secret are replaced, every other line is kept verbatim.
func MaskEnv(envText string) string {
	lines := lineBreakRe.Split(envText, -1)
	for i, line := range lines {
		if line == "" || strings.HasPrefix(strings.TrimSpace(line), "#") || !strings.Contains(line, "=") {
			continue
		}
		idx := strings.Index(line, "=")
		key := strings.TrimSpace(line[:idx])
		upper := strings.ToUpper(key)

		if upper == "DATABASE_URL" {
			lines[i] = key + "=postgresql://" + redacted
			continue
		}
		if isSensitiveKey(upper) {
			lines[i] = key + "=" + redacted
			continue
		}
		lines[i] = key + "=" + line[idx+1:]
	}
	return strings.Join(lines, "\n")
}

func isSensitiveKey(upper string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(upper, part) {
			return true
		}
	}
	return false
}
