package guard

import (
	"fmt"

	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/logger"
	"go.uber.org/zap"
)

// Guard classifies and redacts personal data in user and AI authored text.
// All methods are pure with respect to the input text, synchronous and safe
// for concurrent use.
type Guard struct {
	rules   []Rule
	enabled map[Category]bool
	logger  *logger.Logger
	config  config.GuardConfig
}

// New creates a guard instance with the fixed rule set.
func New(cfg config.GuardConfig, log *logger.Logger) (*Guard, error) {
	g := &Guard{
		rules:   defaultRules(),
		enabled: make(map[Category]bool),
		logger:  log,
		config:  cfg,
	}

	if err := g.configureCategories(cfg.Categories); err != nil {
		return nil, fmt.Errorf("failed to configure categories: %w", err)
	}

	log.Info("PII guard initialized",
		zap.Int("total_rules", len(g.rules)),
		zap.Int("enabled_rules", g.countEnabledRules()),
	)

	return g, nil
}

// configureCategories enables/disables detection categories based on configuration
func (g *Guard) configureCategories(categories []string) error {
	for _, rule := range g.rules {
		g.enabled[rule.Category] = false
	}

	for _, category := range categories {
		if category == "all" {
			for _, rule := range g.rules {
				g.enabled[rule.Category] = true
			}
			continue
		}

		found := false
		for _, rule := range g.rules {
			if string(rule.Category) == category {
				g.enabled[rule.Category] = true
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("unknown category: %s", category)
		}
	}

	return nil
}

// Scan classifies text against the rule set in precedence order. The first
// rule that fires wins and evaluation stops, so a national ID match is always
// reported as such even when the same digits would also satisfy the phone
// rule. A safe result carries no reason.
func (g *Guard) Scan(text string) ScanResult {
	if !g.config.Enabled {
		return ScanResult{Safe: true}
	}

	for _, rule := range g.rules {
		if !g.enabled[rule.Category] {
			continue
		}

		span, ok := firstMatch(rule, text)
		if !ok {
			continue
		}

		g.logger.Debug("PII detected",
			zap.String("category", string(rule.Category)),
			zap.String("severity", string(rule.Severity)),
		)

		return ScanResult{
			Safe:        false,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Reason:      rule.Reason,
			MatchedSpan: span,
		}
	}

	return ScanResult{Safe: true}
}

// firstMatch returns the first pattern match that survives the rule's filter.
func firstMatch(rule Rule, text string) (string, bool) {
	if rule.Filter == nil {
		span := rule.Pattern.FindString(text)
		return span, span != ""
	}

	for _, span := range rule.Pattern.FindAllString(text, -1) {
		if rule.Filter(span) {
			return span, true
		}
	}
	return "", false
}

// Rules exposes the ordered redaction map for diagnostics.
func (g *Guard) Rules() []Rule {
	return g.rules
}

// EnabledCategories returns the categories currently enabled.
func (g *Guard) EnabledCategories() []string {
	var enabled []string
	for _, rule := range g.rules {
		if g.enabled[rule.Category] {
			enabled = append(enabled, string(rule.Category))
		}
	}
	return enabled
}

// countEnabledRules returns the number of enabled detection rules
func (g *Guard) countEnabledRules() int {
	count := 0
	for _, enabled := range g.enabled {
		if enabled {
			count++
		}
	}
	return count
}
