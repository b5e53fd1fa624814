package guard

import "regexp"

// Placeholder tokens. None of them contains digits, an "@", or a word that a
// role-noun collocation can capture, so no rule can ever re-match a
// placeholder and redaction stays idempotent.
const (
	PlaceholderNationalID  = "[PERSONNUMMER]"
	PlaceholderPhone       = "[TELEFONNUMMER]"
	PlaceholderEmail       = "[E-POST]"
	PlaceholderPatientName = "[NAMN]"
)

var (
	// Personnummer: optional century, YYMMDD, optional separator (hyphen,
	// plus for centenarians, or space) and a four digit suffix. Single
	// spaces between the parts are tolerated since users type them that way.
	nationalIDPattern = regexp.MustCompile(`\b(?:\d{2})?\d{2} ?(?:0[1-9]|1[0-2]) ?(?:0[1-9]|[12]\d|3[01]) ?[-+]? ?\d{4}\b`)

	// Phone candidates: leading 0 or +country code, then digit groups with
	// optional space/hyphen separators. Candidates are confirmed by
	// phoneDigitFilter so short numeric tokens (years, room numbers) pass.
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}|\b0\d{0,2})(?:[ -]?\d{1,3}){1,4}`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// A role noun followed by a naming verb and a capitalized word. The name
	// itself is the second capture group; the first group keeps the sentence
	// intact when redacting. Standalone capitalized words are never flagged.
	patientNamePattern = regexp.MustCompile(`(\b(?i:patient(?:en)?|(?:den )?boende(?:n)?|klient(?:en)?|vårdtagaren|brukaren|student(?:en)?|eleven|sjuksköterskan)\s+(?i:heter|kallas|vid namn|är)\s+)([A-ZÅÄÖÉÜ]\p{L}+)`)
)

// minPhoneDigits is the exclusive lower bound on digits in a phone match.
const minPhoneDigits = 7

// defaultRules returns the ordered redaction map. Order matters: a
// personnummer is a digit run that a phone rule could otherwise claim, so the
// national ID rule is evaluated first and a CRITICAL match is never
// downgraded to a WARNING.
func defaultRules() []Rule {
	return []Rule{
		{
			Category:    CategoryNationalID,
			Severity:    SeverityCritical,
			Pattern:     nationalIDPattern,
			Replacement: PlaceholderNationalID,
			Placeholder: PlaceholderNationalID,
			Reason:      "Texten innehåller något som ser ut som ett personnummer. Ta bort det innan du skickar.",
		},
		{
			Category:    CategoryPhone,
			Severity:    SeverityWarning,
			Pattern:     phonePattern,
			Replacement: PlaceholderPhone,
			Placeholder: PlaceholderPhone,
			Reason:      "Texten innehåller något som ser ut som ett telefonnummer. Ta bort det innan du skickar.",
			Filter:      phoneDigitFilter,
		},
		{
			Category:    CategoryEmail,
			Severity:    SeverityWarning,
			Pattern:     emailPattern,
			Replacement: PlaceholderEmail,
			Placeholder: PlaceholderEmail,
			Reason:      "Texten innehåller en e-postadress. Ta bort den innan du skickar.",
		},
		{
			Category:    CategoryPatientName,
			Severity:    SeverityWarning,
			Pattern:     patientNamePattern,
			Replacement: "${1}" + PlaceholderPatientName,
			Placeholder: PlaceholderPatientName,
			Reason:      "Texten verkar innehålla ett patientnamn. Ta bort namnet innan du skickar.",
		},
	}
}

// phoneDigitFilter accepts a candidate only when its digit count, ignoring
// separators, exceeds minPhoneDigits.
func phoneDigitFilter(match string) bool {
	digits := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > minPhoneDigits
}
