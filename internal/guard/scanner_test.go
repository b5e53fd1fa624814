package guard

import (
	"strings"
	"testing"

	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/logger"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()

	g, err := New(config.GuardConfig{Enabled: true, Categories: []string{"all"}}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	return g
}

func TestScanNationalID(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
	}{
		{"with hyphen", "19900101-1234"},
		{"short year with hyphen", "900101-1234"},
		{"no separator", "199001011234"},
		{"plus separator", "900101+1234"},
		{"space separator", "900101 1234"},
		{"internal whitespace", "19 900101 1234"},
		{"embedded in long text", "Dagens pass gick bra. Handledaren bad mig dokumentera att 19900101-1234 skrivits in, vilket jag gjorde innan lunch."},
		{"embedded mid sentence", "personnummer 900101-1234 angavs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Scan(tt.text)
			if result.Safe {
				t.Fatalf("Scan(%q) = safe, want national ID match", tt.text)
			}
			if result.Category != CategoryNationalID {
				t.Errorf("category = %s, want %s", result.Category, CategoryNationalID)
			}
			if result.Severity != SeverityCritical {
				t.Errorf("severity = %s, want %s", result.Severity, SeverityCritical)
			}
			if result.Reason == "" {
				t.Error("unsafe result must carry a reason")
			}
			if !strings.Contains(tt.text, result.MatchedSpan) || result.MatchedSpan == "" {
				t.Errorf("matched span %q is not a literal substring of the input", result.MatchedSpan)
			}
		})
	}
}

func TestScanPhone(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
	}{
		{"mobile with hyphen", "Ring mig på 070-1234567 ikväll."},
		{"grouped mobile", "Nås på 070 123 45 67 vid behov."},
		{"country code", "Numret är +46 70 123 45 67."},
		{"eight digits", "Växeln har nummer 08-123 456."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Scan(tt.text)
			if result.Safe {
				t.Fatalf("Scan(%q) = safe, want phone match", tt.text)
			}
			if result.Category != CategoryPhone {
				t.Errorf("category = %s, want %s", result.Category, CategoryPhone)
			}
			if result.Severity != SeverityWarning {
				t.Errorf("severity = %s, want %s", result.Severity, SeverityWarning)
			}
			if !strings.Contains(tt.text, result.MatchedSpan) {
				t.Errorf("matched span %q is not a literal substring of the input", result.MatchedSpan)
			}
		})
	}
}

func TestScanEmail(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
		span string
	}{
		{"bare address", "anna.svensson@regionen.se", "anna.svensson@regionen.se"},
		{"mid sentence", "Kontakta anna.svensson@regionen.se imorgon.", "anna.svensson@regionen.se"},
		{"surrounding punctuation", "Maila handledaren (k.larsson@vardskolan.se).", "k.larsson@vardskolan.se"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Scan(tt.text)
			if result.Safe {
				t.Fatalf("Scan(%q) = safe, want email match", tt.text)
			}
			if result.Category != CategoryEmail {
				t.Errorf("category = %s, want %s", result.Category, CategoryEmail)
			}
			if result.MatchedSpan != tt.span {
				t.Errorf("matched span = %q, want %q", result.MatchedSpan, tt.span)
			}
		})
	}
}

func TestScanPatientName(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
	}{
		{"patient heter", "Patienten heter Anna och mår bättre idag."},
		{"accented capital", "Patienten heter Åsa."},
		{"boende kallas", "Den boende kallas Bertil av personalen."},
		{"klient är", "Klienten är Johan enligt journalen."},
		{"vårdtagare", "Vårdtagaren heter Märta."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Scan(tt.text)
			if result.Safe {
				t.Fatalf("Scan(%q) = safe, want patient name match", tt.text)
			}
			if result.Category != CategoryPatientName {
				t.Errorf("category = %s, want %s", result.Category, CategoryPatientName)
			}
			if result.Severity != SeverityWarning {
				t.Errorf("severity = %s, want %s", result.Severity, SeverityWarning)
			}
		})
	}
}

func TestScanSafeText(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain prose", "Patienten var orolig men lugnade ner sig efter ett samtal."},
		{"four digit year alone", "Hon föddes 1990 och flyttade hit 2012."},
		{"seven digit number", "Referensnumret är 0701234."},
		{"room number", "Rummet 123 bokades klockan 14."},
		{"standalone capitalized words", "Anna och Björn höll i genomgången."},
		{"role without naming verb", "Patienten fick besök av en student under dagen."},
		{"lowercase after copula", "Patienten är trött och vill vila."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Scan(tt.text)
			if !result.Safe {
				t.Errorf("Scan(%q) = unsafe (%s: %s), want safe", tt.text, result.Category, result.MatchedSpan)
			}
			if result.Reason != "" {
				t.Errorf("safe result must not carry a reason, got %q", result.Reason)
			}
		})
	}
}

func TestScanPrecedence(t *testing.T) {
	g := newTestGuard(t)

	t.Run("national ID wins over phone shape", func(t *testing.T) {
		// Ten digits without separators satisfy both the personnummer and
		// the phone shape; the ID rule must claim them first so the match
		// stays CRITICAL.
		result := g.Scan("Hon angav 9001011234 som kontakt.")
		if result.Safe {
			t.Fatal("expected a match")
		}
		if result.Category != CategoryNationalID {
			t.Errorf("category = %s, want %s", result.Category, CategoryNationalID)
		}
		if result.Severity != SeverityCritical {
			t.Errorf("severity = %s, want %s", result.Severity, SeverityCritical)
		}
	})

	t.Run("ID fires even in otherwise benign text", func(t *testing.T) {
		text := "Idag övade vi på att lägga om sår. Allt gick bra och handledaren var nöjd. Patient 19900101-1234 samtyckte till att jag deltog."
		result := g.Scan(text)
		if result.Safe || result.Severity != SeverityCritical {
			t.Fatalf("embedded ID must make the whole submission unsafe, got %+v", result)
		}
	})

	t.Run("mixed name and phone reports first firing rule", func(t *testing.T) {
		result := g.Scan("Patienten heter Anna och nås på 070-1234567")
		if result.Safe {
			t.Fatal("expected a match")
		}
		if result.Severity != SeverityWarning {
			t.Errorf("severity = %s, want %s", result.Severity, SeverityWarning)
		}
		if result.Category != CategoryPhone && result.Category != CategoryPatientName {
			t.Errorf("category = %s, want phone or patient name", result.Category)
		}
		if result.Reason == "" {
			t.Error("unsafe result must carry a reason")
		}
	})
}

func TestScanDisabled(t *testing.T) {
	g, err := New(config.GuardConfig{Enabled: false, Categories: []string{"all"}}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	if result := g.Scan("19900101-1234"); !result.Safe {
		t.Error("disabled guard must pass everything through")
	}
}

func TestConfigureCategories(t *testing.T) {
	t.Run("unknown category", func(t *testing.T) {
		_, err := New(config.GuardConfig{Enabled: true, Categories: []string{"ssn"}}, logger.NewNop())
		if err == nil {
			t.Error("expected error for unknown category")
		}
	})

	t.Run("subset of categories", func(t *testing.T) {
		g, err := New(config.GuardConfig{Enabled: true, Categories: []string{"national_id"}}, logger.NewNop())
		if err != nil {
			t.Fatalf("Failed to create guard: %v", err)
		}

		if result := g.Scan("19900101-1234"); result.Safe {
			t.Error("enabled category must still fire")
		}
		if result := g.Scan("anna@vard.se"); !result.Safe {
			t.Error("disabled category must not fire")
		}
	})
}
