package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	fixedNow(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name        string
		start       UserProfile
		candidates  map[Field]string
		opts        MergeOptions
		want        UserProfile
		wantUpdated []Field
		wantCleared []Field
		wantReject  []Field
	}{
		{
			name:        "fills empty fields",
			candidates:  map[Field]string{FieldFirstName: "dana", FieldHMO: "מכבי"},
			want:        UserProfile{FirstName: "Dana", HMO: HMOMaccabi},
			wantUpdated: []Field{FieldFirstName, FieldHMO},
		},
		{
			name:       "invalid value never replaces valid one",
			start:      UserProfile{NationalID: "123456789"},
			candidates: map[Field]string{FieldNationalID: "12345"},
			want:       UserProfile{NationalID: "123456789"},
			wantReject: []Field{FieldNationalID},
		},
		{
			name:       "invalid value on empty field stays empty",
			candidates: map[Field]string{FieldNationalID: "12345"},
			want:       UserProfile{},
			wantReject: []Field{FieldNationalID},
		},
		{
			name:        "valid correction replaces value",
			start:       UserProfile{HMO: HMOMaccabi},
			candidates:  map[Field]string{FieldHMO: "Clalit"},
			want:        UserProfile{HMO: HMOClalit},
			wantUpdated: []Field{FieldHMO},
		},
		{
			name:       "same value is not an update",
			start:      UserProfile{HMO: HMOMaccabi},
			candidates: map[Field]string{FieldHMO: "maccabi"},
			want:       UserProfile{HMO: HMOMaccabi},
		},
		{
			name:        "invalid correction clears field",
			start:       UserProfile{NationalID: "123456789"},
			candidates:  map[Field]string{FieldNationalID: "12345"},
			opts:        MergeOptions{Correction: true},
			want:        UserProfile{},
			wantCleared: []Field{FieldNationalID},
			wantReject:  []Field{FieldNationalID},
		},
		{
			name:        "explicit retraction clears field",
			start:       UserProfile{InsuranceTier: TierGold, HMO: HMOMaccabi},
			opts:        MergeOptions{Retracted: []Field{FieldInsuranceTier}},
			want:        UserProfile{HMO: HMOMaccabi},
			wantCleared: []Field{FieldInsuranceTier},
		},
		{
			name:        "retraction with replacement keeps replacement",
			start:       UserProfile{InsuranceTier: TierGold},
			candidates:  map[Field]string{FieldInsuranceTier: "silver"},
			opts:        MergeOptions{Retracted: []Field{FieldInsuranceTier}},
			want:        UserProfile{InsuranceTier: TierSilver},
			wantUpdated: []Field{FieldInsuranceTier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.start
			out, err := p.Merge(tt.candidates, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.wantUpdated, out.Updated)
			assert.Equal(t, tt.wantCleared, out.Cleared)

			var rejected []Field
			for _, r := range out.Rejected {
				rejected = append(rejected, r.Field)
			}
			assert.Equal(t, tt.wantReject, rejected)
		})
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	fixedNow(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	all := map[Field]string{
		FieldFirstName:     "Dana",
		FieldLastName:      "Cohen",
		FieldNationalID:    "123456789",
		FieldGender:        "female",
		FieldDateOfBirth:   "15/03/1990",
		FieldHMO:           "Maccabi",
		FieldInsuranceTier: "Gold",
	}

	var oneShot UserProfile
	_, err := oneShot.Merge(all, MergeOptions{})
	require.NoError(t, err)

	var piecewise UserProfile
	for i := len(Fields) - 1; i >= 0; i-- {
		f := Fields[i]
		_, err := piecewise.Merge(map[Field]string{f: all[f]}, MergeOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, oneShot, piecewise)
	assert.True(t, piecewise.IsComplete())
}

func TestMergeFrozen(t *testing.T) {
	p := completeProfile()
	p.Frozen = true

	out, err := p.Merge(map[Field]string{FieldHMO: "Clalit"}, MergeOptions{})
	assert.ErrorIs(t, err, ErrProfileFrozen)
	assert.False(t, out.Changed())
	assert.Equal(t, HMOMaccabi, p.HMO)
}
