package guard

import "go.uber.org/zap"

// DisclosureSuffix is appended to AI responses that had to be redacted, so
// the reader knows the text was altered.
const DisclosureSuffix = "\n\nDetta svar innehöll känsliga uppgifter som automatiskt maskerades."

// SanitizeResponse applies the scanner to AI-generated text as a defense
// against the model reproducing personal data. Unsafe text is redacted and a
// fixed disclosure is appended; safe text passes through unchanged. This path
// must never touch the violation counter: the user did not author the leak.
func (g *Guard) SanitizeResponse(aiText string) (string, bool) {
	result := g.Scan(aiText)
	if result.Safe {
		return aiText, false
	}

	g.logger.Info("AI response redacted",
		zap.String("category", string(result.Category)),
		zap.String("severity", string(result.Severity)),
	)

	return g.Redact(aiText) + DisclosureSuffix, true
}
