// Package profile holds the user profile collected before the Q&A phase:
// the required personal and insurance fields, their normalization and
// validation, and the rule for merging extracted candidates into a profile.
package profile

import (
	"errors"
	"strings"
)

// Field names one required profile field.
type Field string

const (
	FieldFirstName     Field = "first_name"
	FieldLastName      Field = "last_name"
	FieldNationalID    Field = "national_id"
	FieldGender        Field = "gender"
	FieldDateOfBirth   Field = "date_of_birth"
	FieldHMO           Field = "hmo"
	FieldInsuranceTier Field = "insurance_tier"
)

// Fields lists every required field in the order they are asked for and reported.
var Fields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldNationalID,
	FieldGender,
	FieldDateOfBirth,
	FieldHMO,
	FieldInsuranceTier,
}

// ParseField maps a wire name (as produced by the extraction model) to a Field.
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type HMO string

const (
	HMOClalit   HMO = "Clalit"
	HMOMaccabi  HMO = "Maccabi"
	HMOMeuhedet HMO = "Meuhedet"
)

type Tier string

const (
	TierGold   Tier = "Gold"
	TierSilver Tier = "Silver"
	TierBronze Tier = "Bronze"
)

// ErrProfileFrozen is returned when a confirmed profile is asked to change.
var ErrProfileFrozen = errors.New("profile is confirmed and read-only")

// UserProfile is the structured profile of one conversation. Values are
// stored normalized; an empty value means the field is still missing.
type UserProfile struct {
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	NationalID    string `json:"national_id,omitempty"`
	Gender        Gender `json:"gender,omitempty"`
	DateOfBirth   string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	HMO           HMO    `json:"hmo,omitempty"`
	InsuranceTier Tier   `json:"insurance_tier,omitempty"`

	// Frozen is set once the user confirmed the profile.
	Frozen bool `json:"frozen"`
}

// Get returns the stored value of a field.
func (p *UserProfile) Get(f Field) string {
	switch f {
	case FieldFirstName:
		return p.FirstName
	case FieldLastName:
		return p.LastName
	case FieldNationalID:
		return p.NationalID
	case FieldGender:
		return string(p.Gender)
	case FieldDateOfBirth:
		return p.DateOfBirth
	case FieldHMO:
		return string(p.HMO)
	case FieldInsuranceTier:
		return string(p.InsuranceTier)
	}
	return ""
}

func (p *UserProfile) set(f Field, v string) {
	switch f {
	case FieldFirstName:
		p.FirstName = v
	case FieldLastName:
		p.LastName = v
	case FieldNationalID:
		p.NationalID = v
	case FieldGender:
		p.Gender = Gender(v)
	case FieldDateOfBirth:
		p.DateOfBirth = v
	case FieldHMO:
		p.HMO = HMO(v)
	case FieldInsuranceTier:
		p.InsuranceTier = Tier(v)
	}
}

// MissingFields returns the fields that are unset or no longer valid, in Fields order.
func (p *UserProfile) MissingFields() []Field {
	var missing []Field
	for _, f := range Fields {
		if err := ValidateField(f, p.Get(f)); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}

// IsComplete reports whether every field is present and valid.
func (p *UserProfile) IsComplete() bool {
	return len(p.MissingFields()) == 0
}

// Freeze marks the profile confirmed. It refuses incomplete profiles.
func (p *UserProfile) Freeze() error {
	if !p.IsComplete() {
		return errors.New("cannot freeze an incomplete profile")
	}
	p.Frozen = true
	return nil
}

// Redacted returns a copy safe to show outside the conversation:
// the national ID keeps its last four digits and the birth date only its year.
func (p UserProfile) Redacted() UserProfile {
	if n := len(p.NationalID); n > 4 {
		p.NationalID = strings.Repeat("*", n-4) + p.NationalID[n-4:]
	}
	if len(p.DateOfBirth) >= 4 {
		p.DateOfBirth = p.DateOfBirth[:4]
	}
	return p
}
