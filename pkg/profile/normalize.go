package profile

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	canonicalDateLayout = "2006-01-02"
	displayDateLayout   = "02/01/2006"
)

// dateLayouts are the birth-date spellings accepted from users.
var dateLayouts = []string{
	canonicalDateLayout,
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
}

var genderAliases = map[string]Gender{
	"male":   GenderMale,
	"m":      GenderMale,
	"man":    GenderMale,
	"זכר":    GenderMale,
	"female": GenderFemale,
	"f":      GenderFemale,
	"woman":  GenderFemale,
	"נקבה":   GenderFemale,
}

var hmoAliases = map[string]HMO{
	"clalit":    HMOClalit,
	"כללית":     HMOClalit,
	"maccabi":   HMOMaccabi,
	"מכבי":      HMOMaccabi,
	"meuhedet":  HMOMeuhedet,
	"meuchedet": HMOMeuhedet,
	"מאוחדת":    HMOMeuhedet,
}

var tierAliases = map[string]Tier{
	"gold":   TierGold,
	"זהב":    TierGold,
	"silver": TierSilver,
	"כסף":    TierSilver,
	"bronze": TierBronze,
	"ארד":    TierBronze,
}

var titleCaser = cases.Title(language.Und)

// Normalize maps a raw user-provided value to the stored form of a field.
// It does not validate: an unrecognized value is returned as-is so the
// validator reports it.
func Normalize(f Field, raw string) (string, error) {
	v := strings.Join(strings.Fields(raw), " ")
	if v == "" {
		return "", &ValidationError{Field: f, Value: raw, Reason: "empty value"}
	}

	switch f {
	case FieldFirstName, FieldLastName:
		return titleCaser.String(v), nil
	case FieldNationalID:
		return strings.NewReplacer(" ", "", "-", "").Replace(v), nil
	case FieldGender:
		if g, ok := genderAliases[strings.ToLower(v)]; ok {
			return string(g), nil
		}
	case FieldDateOfBirth:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, v); err == nil {
				return d.Format(canonicalDateLayout), nil
			}
		}
	case FieldHMO:
		if h, ok := hmoAliases[strings.ToLower(v)]; ok {
			return string(h), nil
		}
	case FieldInsuranceTier:
		if t, ok := tierAliases[strings.ToLower(v)]; ok {
			return string(t), nil
		}
	}
	return v, nil
}

// DisplayDate renders a stored birth date as DD/MM/YYYY.
func DisplayDate(stored string) string {
	d, err := time.Parse(canonicalDateLayout, stored)
	if err != nil {
		return stored
	}
	return d.Format(displayDateLayout)
}
