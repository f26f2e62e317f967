package cmdguard

import (
	"bytes"
	"io"
	"regexp"
	"strings"
)

// DefaultMaxOutput caps each captured stream.
const DefaultMaxOutput = 1 << 20

const truncatedMarker = "\n[output truncated]"

// cappedBuffer keeps the first limit bytes written to it and silently
// discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		c.truncated = true
		_, _ = c.buf.Write(p[:remaining])
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + truncatedMarker
	}
	return c.buf.String()
}

var _ io.Writer = (*cappedBuffer)(nil)

// secretPatterns match credential values that commands like cat or grep
// may print from files inside the boundary.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{30,}`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`),
}

// sensitiveAssignment matches KEY=VALUE lines whose key names a secret,
// as printed by `go env` or from .env files.
var sensitiveAssignment = regexp.MustCompile(
	`(?im)^(?:export )?\w*(?:SECRET|TOKEN|PASSWORD|PASSWD|API_KEY|PRIVATE_KEY)\w*[=:].*$`,
)

const redactPlaceholder = "[REDACTED]"

// redactSecrets replaces credential-looking values in output and returns
// the redacted text with the number of replacements.
func redactSecrets(output string) (string, int) {
	count := 0
	result := output
	for _, re := range secretPatterns {
		if n := len(re.FindAllStringIndex(result, -1)); n > 0 {
			count += n
			result = re.ReplaceAllString(result, redactPlaceholder)
		}
	}
	if n := len(sensitiveAssignment.FindAllStringIndex(result, -1)); n > 0 {
		count += n
		result = sensitiveAssignment.ReplaceAllString(result, redactPlaceholder)
	}

	for strings.Contains(result, redactPlaceholder+"\n"+redactPlaceholder) {
		result = strings.ReplaceAll(result, redactPlaceholder+"\n"+redactPlaceholder, redactPlaceholder)
	}
	return result, count
}
