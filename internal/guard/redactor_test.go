package guard

import (
	"testing"

	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/logger"
)

func TestRedactSingleCategory(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"national ID alone",
			"19900101-1234",
			"[PERSONNUMMER]",
		},
		{
			"national ID in sentence",
			"Patient 900101+1234 skrevs in imorse.",
			"Patient [PERSONNUMMER] skrevs in imorse.",
		},
		{
			"phone in sentence",
			"Ring mig på 070-1234567 ikväll.",
			"Ring mig på [TELEFONNUMMER] ikväll.",
		},
		{
			"email surrounded by prose",
			"Kontakta anna.svensson@regionen.se imorgon.",
			"Kontakta [E-POST] imorgon.",
		},
		{
			"name keeps role and verb",
			"Patienten heter Anna och mår bättre idag.",
			"Patienten heter [NAMN] och mår bättre idag.",
		},
		{
			"repeated occurrences all replaced",
			"Maila a@b.se eller c@d.se direkt.",
			"Maila [E-POST] eller [E-POST] direkt.",
		},
		{
			"no PII unchanged",
			"Patienten var orolig men lugnade ner sig efter ett samtal.",
			"Patienten var orolig men lugnade ner sig efter ett samtal.",
		},
		{
			"short number untouched",
			"Referensnumret är 0701234.",
			"Referensnumret är 0701234.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Redact(tt.text); got != tt.want {
				t.Errorf("Redact(%q)\n got: %q\nwant: %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRedactMultiCategory(t *testing.T) {
	g := newTestGuard(t)

	t.Run("name and phone", func(t *testing.T) {
		got := g.Redact("Patienten heter Anna och nås på 070-1234567")
		want := "Patienten heter [NAMN] och nås på [TELEFONNUMMER]"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("phone then email", func(t *testing.T) {
		got := g.Redact("Nås på 070-1234567 eller anna@vard.se.")
		want := "Nås på [TELEFONNUMMER] eller [E-POST]."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("email then phone", func(t *testing.T) {
		got := g.Redact("Nås på anna@vard.se eller 070-1234567.")
		want := "Nås på [E-POST] eller [TELEFONNUMMER]."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("all categories at once", func(t *testing.T) {
		got := g.Redact("Patienten heter Anna, pnr 19900101-1234, tel 070-1234567, anna@vard.se.")
		want := "Patienten heter [NAMN], pnr [PERSONNUMMER], tel [TELEFONNUMMER], [E-POST]."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestRedactIdempotence(t *testing.T) {
	g := newTestGuard(t)

	inputs := []string{
		"19900101-1234",
		"Patienten heter Anna och nås på 070-1234567",
		"Maila a@b.se eller c@d.se direkt.",
		"[PERSONNUMMER] [TELEFONNUMMER] [E-POST] [NAMN]",
		"Patienten heter [NAMN] och nås på [TELEFONNUMMER]",
		"Helt ofarlig text utan några uppgifter alls.",
		"Patient 900101+1234 med nummer +46 70 123 45 67 och a@b.se.",
	}

	for _, input := range inputs {
		once := g.Redact(input)
		twice := g.Redact(once)
		if once != twice {
			t.Errorf("redaction is not idempotent for %q:\n once: %q\ntwice: %q", input, once, twice)
		}
	}
}

// Placeholder tokens must never be re-matched by any rule.
func TestPlaceholdersAreInert(t *testing.T) {
	g := newTestGuard(t)

	for _, rule := range g.Rules() {
		placeholders := []string{
			PlaceholderNationalID,
			PlaceholderPhone,
			PlaceholderEmail,
			PlaceholderPatientName,
		}
		for _, p := range placeholders {
			if span, ok := firstMatch(rule, p); ok {
				t.Errorf("rule %s matches placeholder %q (span %q)", rule.Category, p, span)
			}
		}
	}
}

func TestRedactDisabled(t *testing.T) {
	g, err := New(config.GuardConfig{Enabled: false, Categories: []string{"all"}}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	text := "19900101-1234"
	if got := g.Redact(text); got != text {
		t.Errorf("disabled guard must not redact, got %q", got)
	}
}
