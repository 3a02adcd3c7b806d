// Package fundname recovers a reporting month and a canonical fund name
// from the arbitrarily-formatted filenames of fund-accounting extracts.
package fundname

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownFund is returned when no usable name token survives cleanup.
const UnknownFund = "Unknown"

// datePatterns are tried in priority order; the first pattern that
// matches wins and only its first match is used.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}[-_]\d{2}[-_]\d{2}`), // 2023-02-28 or 2023_02_28
	regexp.MustCompile(`\d{2}[-_]\d{2}[-_]\d{4}`), // 28-02-2023 or 01-31-2023
	regexp.MustCompile(`\d{8}`),                   // 20220831
}

// dateLayouts are tried in order against the matched substring with
// underscores normalized to hyphens. Day-first comes before month-first
// on purpose: an ambiguous value like 03-04-2023 must resolve to April
// (day=3, month=4). Reordering this list changes labelled months.
var dateLayouts = []string{"02-01-2006", "01-02-2006", "2006-01-02", "20060102"}

var (
	separatorRun = regexp.MustCompile(`[._\-\s]+`)
	suffixNoise  = regexp.MustCompile(`(?i)\b(breakdown|details|securities|report)\b`)
	hasAlpha     = regexp.MustCompile(`[A-Za-z]`)
)

// stopWords are tokens that carry no fund identity.
var stopWords = map[string]bool{
	"fund":        true,
	"report":      true,
	"rpt":         true,
	"tt":          true,
	"tt_monthly":  true,
	"monthly":     true,
	"mend":        true,
	"mend-report": true,
	"report-of":   true,
	"of":          true,
	"the":         true,
	"reportof":    true,
}

var titleCaser = cases.Title(language.English)

// Resolution is the identity recovered from one filename.
type Resolution struct {
	// Month is the reporting period in YYYY-MM form, or empty when the
	// filename contains no recognizable date substring.
	Month string
	// FundName is never empty; UnknownFund is the sentinel.
	FundName string
}

// Resolve extracts the reporting month and fund name from filename.
func Resolve(filename string) Resolution {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	dateToken := findDateSubstring(base)

	month := ""
	candidate := base
	if dateToken != "" {
		month = parseDateToken(dateToken)
		candidate = strings.Replace(base, dateToken, " ", 1)
	}

	return Resolution{Month: month, FundName: cleanCandidateName(candidate)}
}

// findDateSubstring returns the first match of the highest-priority
// pattern, or "" when no pattern matches.
func findDateSubstring(base string) string {
	for _, pattern := range datePatterns {
		if m := pattern.FindString(base); m != "" {
			return m
		}
	}

	return ""
}

// parseDateToken parses token into YYYY-MM, or "" when no layout accepts it.
func parseDateToken(token string) string {
	normalized := strings.ReplaceAll(token, "_", "-")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format("2006-01")
		}
	}

	return ""
}

// cleanCandidateName reduces the date-stripped basename to a title-cased
// fund name, or UnknownFund when nothing survives.
func cleanCandidateName(candidate string) string {
	s := strings.TrimSpace(separatorRun.ReplaceAllString(candidate, " "))
	s = strings.TrimSpace(suffixNoise.ReplaceAllString(s, " "))

	tokens := filterTokens(strings.Fields(s))

	if len(tokens) == 0 {
		// retry against the original candidate split on raw separators,
		// skipping the suffix-noise removal
		tokens = filterTokens(separatorRun.Split(candidate, -1))
	}

	if len(tokens) == 0 {
		return UnknownFund
	}

	return titleCaser.String(strings.Join(tokens, " "))
}

// filterTokens drops tokens with no alphabetic character and tokens
// whose lowercase form is a stop word.
func filterTokens(tokens []string) []string {
	var kept []string

	for _, t := range tokens {
		if !hasAlpha.MatchString(t) {
			continue
		}

		if stopWords[strings.ToLower(t)] {
			continue
		}

		kept = append(kept, t)
	}

	return kept
}
