// Package intent classifies how a user answered the profile summary.
package intent

import (
	"strings"
	"unicode"
)

// Kind of reply to a confirmation request.
type Kind int

const (
	// KindOther covers anything that is neither a bare yes nor a bare no.
	KindOther Kind = iota
	KindAffirm
	KindReject
)

func (k Kind) String() string {
	switch k {
	case KindAffirm:
		return "AFFIRM"
	case KindReject:
		return "REJECT"
	}
	return "OTHER"
}

var affirmWords = wordSet(
	"yes", "yeah", "yep", "yup", "correct", "confirm", "confirmed", "ok", "okay",
	"sure", "right", "approve", "approved",
	"כן", "נכון", "מאשר", "מאשרת", "מאושר", "בסדר", "אכן", "מאשרים",
)

var rejectWords = wordSet(
	"no", "nope", "not", "wrong", "incorrect", "isn", "don", "doesn", "never",
	"לא", "טעות", "שגוי", "שגויה", "אינו", "אינם",
)

// fillerWords may accompany an affirmation without making it a correction.
var fillerWords = wordSet(
	"that", "thats", "s", "is", "it", "its", "all", "everything", "the", "details",
	"are", "good", "fine", "exactly", "perfect", "great", "thanks", "thank", "you", "please", "i",
	"זה", "הכל", "הכול", "כך", "הפרטים", "פרטים", "טוב", "מצוין", "בדיוק", "תודה", "אני",
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Tokens lowercases text and splits it on anything that is not a letter or digit.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Classify decides whether text is a pure affirmation, a bare rejection or
// something else. A pure affirmation holds at least one affirmation word,
// no negation and nothing beyond filler.
func Classify(text string) Kind {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return KindOther
	}

	affirmed := false
	for _, tok := range tokens {
		if _, ok := rejectWords[tok]; ok {
			return KindReject
		}
	}
	for _, tok := range tokens {
		if _, ok := affirmWords[tok]; ok {
			affirmed = true
			continue
		}
		if _, ok := fillerWords[tok]; ok {
			continue
		}
		return KindOther
	}
	if affirmed {
		return KindAffirm
	}
	return KindOther
}
