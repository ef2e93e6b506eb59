package domain

import "strings"

// RenderTemplate substitutes {token} placeholders in a campaign body
// with recipient attributes. The destination address is always available
// as {dest_addr}. Unknown tokens are left untouched so operators can
// spot them in stored content.
func RenderTemplate(body, destAddr string, attrs map[string]string) string {
	out := strings.ReplaceAll(body, "{dest_addr}", destAddr)
	for key, value := range attrs {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// NormalizeDest canonicalizes a destination address for deduplication:
// trims whitespace and strips internal separators commonly found in
// pasted phone lists.
func NormalizeDest(dest string) string {
	dest = strings.TrimSpace(dest)
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(dest)
}
