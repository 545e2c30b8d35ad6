package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func completeProfile() UserProfile {
	return UserProfile{
		FirstName:     "Dana",
		LastName:      "Cohen",
		NationalID:    "123456789",
		Gender:        GenderFemale,
		DateOfBirth:   "1990-03-15",
		HMO:           HMOMaccabi,
		InsuranceTier: TierGold,
	}
}

func TestAccept(t *testing.T) {
	fixedNow(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		field   Field
		raw     string
		want    string
		wantErr bool
	}{
		{name: "latin first name title cased", field: FieldFirstName, raw: "  dana ", want: "Dana"},
		{name: "hebrew last name", field: FieldLastName, raw: "כהן", want: "כהן"},
		{name: "name with digits", field: FieldFirstName, raw: "Dana2", wantErr: true},
		{name: "name too long", field: FieldFirstName, raw: "Abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijx", wantErr: true},
		{name: "national id", field: FieldNationalID, raw: "123456789", want: "123456789"},
		{name: "national id with separators", field: FieldNationalID, raw: "123-456 789", want: "123456789"},
		{name: "national id too short", field: FieldNationalID, raw: "12345", wantErr: true},
		{name: "national id with letters", field: FieldNationalID, raw: "12345678a", wantErr: true},
		{name: "national id with sign", field: FieldNationalID, raw: "+12345678", wantErr: true},
		{name: "gender english", field: FieldGender, raw: "Female", want: "female"},
		{name: "gender hebrew", field: FieldGender, raw: "זכר", want: "male"},
		{name: "gender unknown", field: FieldGender, raw: "other", wantErr: true},
		{name: "dob slashes", field: FieldDateOfBirth, raw: "15/03/1990", want: "1990-03-15"},
		{name: "dob dots", field: FieldDateOfBirth, raw: "15.03.1990", want: "1990-03-15"},
		{name: "dob iso", field: FieldDateOfBirth, raw: "1990-03-15", want: "1990-03-15"},
		{name: "dob short day and month", field: FieldDateOfBirth, raw: "5/3/1990", want: "1990-03-05"},
		{name: "dob in the future", field: FieldDateOfBirth, raw: "01/01/2030", wantErr: true},
		{name: "dob too old", field: FieldDateOfBirth, raw: "01/01/1890", wantErr: true},
		{name: "dob garbage", field: FieldDateOfBirth, raw: "yesterday", wantErr: true},
		{name: "hmo english", field: FieldHMO, raw: "maccabi", want: "Maccabi"},
		{name: "hmo hebrew", field: FieldHMO, raw: "מאוחדת", want: "Meuhedet"},
		{name: "hmo alternate spelling", field: FieldHMO, raw: "Meuchedet", want: "Meuhedet"},
		{name: "hmo unknown", field: FieldHMO, raw: "Leumit", wantErr: true},
		{name: "tier hebrew", field: FieldInsuranceTier, raw: "זהב", want: "Gold"},
		{name: "tier unknown", field: FieldInsuranceTier, raw: "platinum", wantErr: true},
		{name: "empty value", field: FieldHMO, raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accept(tt.field, tt.raw)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMissingFields(t *testing.T) {
	p := completeProfile()
	assert.True(t, p.IsComplete())
	assert.Empty(t, p.MissingFields())

	p.NationalID = ""
	p.HMO = ""
	assert.False(t, p.IsComplete())
	assert.Equal(t, []Field{FieldNationalID, FieldHMO}, p.MissingFields())
}

func TestFreeze(t *testing.T) {
	p := completeProfile()
	require.NoError(t, p.Freeze())
	assert.True(t, p.Frozen)

	incomplete := UserProfile{FirstName: "Dana"}
	assert.Error(t, incomplete.Freeze())
	assert.False(t, incomplete.Frozen)
}

func TestRedacted(t *testing.T) {
	p := completeProfile()
	r := p.Redacted()

	assert.Equal(t, "*****6789", r.NationalID)
	assert.Equal(t, "1990", r.DateOfBirth)
	assert.Equal(t, "Dana", r.FirstName)
	assert.Equal(t, "123456789", p.NationalID, "original must be untouched")
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "15/03/1990", DisplayDate("1990-03-15"))
	assert.Equal(t, "", DisplayDate(""))
}

func TestParseField(t *testing.T) {
	f, ok := ParseField(" HMO ")
	assert.True(t, ok)
	assert.Equal(t, FieldHMO, f)

	_, ok = ParseField("email")
	assert.False(t, ok)
}
