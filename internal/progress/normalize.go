package progress

import (
	"regexp"
	"strings"
)

// ansiEscape matches two-byte Fe escapes and CSI sequences.
var ansiEscape = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// yt-dlp reports binary units; the UI shows the decimal labels without
// converting the number.
var unitLabels = strings.NewReplacer(
	"MiB/s", "MB/s",
	"KiB/s", "KB/s",
	"GiB/s", "GB/s",
)

// Normalize cleans a raw progress string from the extractor: terminal
// escapes and non-printable characters are removed, rate units are
// relabeled and surrounding whitespace is trimmed.
func Normalize(raw string) string {
	s := ansiEscape.ReplaceAllString(raw, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(unitLabels.Replace(b.String()))
}
