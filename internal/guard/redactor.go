package guard

import "go.uber.org/zap"

// Redact produces a sanitized copy of text. Unlike Scan, which stops at the
// first firing rule, Redact applies every enabled rule across the whole text,
// since one text can carry several kinds of personal data at once. Every
// occurrence of a category is replaced, not just the first. The operation is
// idempotent: placeholder tokens are never re-matched by any rule.
func (g *Guard) Redact(text string) string {
	if !g.config.Enabled {
		return text
	}

	redacted := text
	for _, rule := range g.rules {
		if !g.enabled[rule.Category] {
			continue
		}
		redacted = applyRule(rule, redacted)
	}

	if redacted != text {
		g.logger.Debug("text redacted", zap.Int("original_len", len(text)), zap.Int("redacted_len", len(redacted)))
	}

	return redacted
}

// applyRule replaces all surviving matches of a single rule. The patient name
// rule keeps the role noun and verb through its first capture group, so the
// sentence stays readable with only the identifying token removed.
func applyRule(rule Rule, text string) string {
	if rule.Filter == nil {
		return rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}

	return rule.Pattern.ReplaceAllStringFunc(text, func(match string) string {
		if !rule.Filter(match) {
			return match
		}
		return rule.Replacement
	})
}
