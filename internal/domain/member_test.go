package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() MemberInput {
	return MemberInput{
		FirstName:  "  Lucia ",
		LastName:   "Fernandez",
		NationalID: " 30111222 ",
		Discipline: DisciplineCrossfit,
	}
}

func TestMemberInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *MemberInput)
		wantMsg string
	}{
		{"valid", func(in *MemberInput) {}, ""},
		{"blank first name", func(in *MemberInput) { in.FirstName = "   " }, "first name is required"},
		{"missing last name", func(in *MemberInput) { in.LastName = "" }, "last name is required"},
		{"missing national id", func(in *MemberInput) { in.NationalID = "" }, "national id is required"},
		{"letters in national id", func(in *MemberInput) { in.NationalID = "30.111.222" }, "national id must contain digits only"},
		{"unknown discipline", func(in *MemberInput) { in.Discipline = "Yoga" }, `unknown discipline "Yoga"`},
		{"bad start date", func(in *MemberInput) { in.StartDate = "01/02/2024" }, "start_date"},
		{"empty discipline allowed", func(in *MemberInput) { in.Discipline = DisciplineNone }, ""},
		{"end date year too large", func(in *MemberInput) { in.EndDate = "9999-12-31" }, "year must be between 1900 and 2999"},
		{"start date year too small", func(in *MemberInput) { in.StartDate = "0001-01-01" }, "year must be between 1900 and 2999"},
		{"upper bound accepted", func(in *MemberInput) { in.EndDate = "2999-12-31" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			in.Normalize()
			err := in.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMemberInput_NormalizeTrims(t *testing.T) {
	in := validInput()
	in.Normalize()
	assert.Equal(t, "Lucia", in.FirstName)
	assert.Equal(t, "30111222", in.NationalID)
}

func TestMemberPatch(t *testing.T) {
	m := &Member{ID: "m1", FirstName: "Ana", LastName: "Lucero", NationalID: "40123123", EndDate: "2024-02-01"}

	end := " 2024-03-01 "
	last := "Lucero Paz"
	p := MemberPatch{EndDate: &end, LastName: &last}
	p.Normalize()
	require.NoError(t, p.Validate())
	p.ApplyTo(m)

	assert.Equal(t, "2024-03-01", m.EndDate)
	assert.Equal(t, "Lucero Paz", m.LastName)
	assert.Equal(t, "Ana", m.FirstName)

	empty := ""
	bad := MemberPatch{FirstName: &empty}
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	far := "9999-12-31"
	assert.ErrorIs(t, (&MemberPatch{EndDate: &far}).Validate(), ErrValidation)

	assert.True(t, (&MemberPatch{}).IsEmpty())
}

func TestMemberClone(t *testing.T) {
	m := &Member{ID: "m1", FirstName: "Ana"}
	c := m.Clone()
	c.FirstName = "Other"
	assert.Equal(t, "Ana", m.FirstName)
	assert.Equal(t, "Ana Lucero", (&Member{FirstName: "Ana", LastName: "Lucero"}).FullName())
}
