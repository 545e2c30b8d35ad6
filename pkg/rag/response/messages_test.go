package response

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/store"
)

func TestAskMissing(t *testing.T) {
	en := AskMissing([]profile.Field{profile.FieldNationalID, profile.FieldHMO}, nil, store.LanguageEnglish)
	assert.Equal(t, "Thanks! I still need: your ID number (9 digits), your HMO (Clalit, Maccabi or Meuhedet).", en)

	he := AskMissing([]profile.Field{profile.FieldInsuranceTier}, []*profile.ValidationError{{Field: profile.FieldNationalID}}, store.LanguageHebrew)
	assert.Contains(t, he, "מסלול ביטוח")
	assert.Contains(t, he, "מספר תעודת זהות")
	assert.NotContains(t, he, "קופת חולים")
}

func TestSummary(t *testing.T) {
	p := profile.UserProfile{
		FirstName: "Dana", LastName: "Cohen", NationalID: "123456789",
		Gender: profile.GenderFemale, DateOfBirth: "1990-03-15",
		HMO: profile.HMOMaccabi, InsuranceTier: profile.TierGold,
	}

	en := Summary(p, nil, store.LanguageEnglish)
	for _, want := range []string{"Dana", "Cohen", "123456789", "Female", "15/03/1990", "Maccabi", "Gold"} {
		assert.Contains(t, en, want)
	}

	he := Summary(p, nil, store.LanguageHebrew)
	for _, want := range []string{"נקבה", "מכבי", "זהב", "15/03/1990"} {
		assert.Contains(t, he, want)
	}

	assert.Contains(t, SummaryWithAnswers(p, store.LanguageEnglish), "\"yes\"")
	assert.Contains(t, QAReady(p, store.LanguageEnglish), "Maccabi (Gold tier)")
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "מאוחדת", DisplayValue(profile.FieldHMO, "Meuhedet", store.LanguageHebrew))
	assert.Equal(t, "Dana", DisplayValue(profile.FieldFirstName, "Dana", store.LanguageHebrew))
	assert.Equal(t, "01/02/2000", DisplayValue(profile.FieldDateOfBirth, "2000-02-01", store.LanguageEnglish))
}

func TestWelcomeIsBilingual(t *testing.T) {
	w := Welcome()
	assert.Contains(t, w, "שלום")
	assert.Contains(t, w, "Hello")
}
