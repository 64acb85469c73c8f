package services

import "strings"

// StripCodeFence removes a Markdown code fence wrapped around a model
// response, with or without a "json" language tag. Already-clean text is
// returned unchanged apart from whitespace trimming, so the function is
// idempotent. No other repair is attempted; if the result still does not
// parse as JSON that is the caller's terminal failure.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		tag := strings.TrimSpace(text[:idx])
		if tag == "" || strings.EqualFold(tag, "json") {
			text = text[idx+1:]
		}
	} else {
		text = strings.TrimPrefix(text, "json")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
