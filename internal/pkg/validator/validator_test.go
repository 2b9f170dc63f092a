package validator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000",
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	_, ok := IsValidDate("2024-02-29")
	assert.True(t, ok)
	_, ok = IsValidDate("2023-02-29")
	assert.False(t, ok)
}

type rateConfig struct {
	Rate    *decimal.Decimal `json:"rate" validate:"omitempty,gte=0,lte=100"`
	Ceiling decimal.Decimal  `json:"ceiling" validate:"gt=0"`
	Mode    string           `json:"mode" validate:"required,oneof=FIXED PERCENT_OF_BASIC"`
}

func TestStruct(t *testing.T) {
	over := decimal.NewFromInt(120)
	err := Struct(rateConfig{Rate: &over, Ceiling: decimal.Zero})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	m := verrs.ToMap()
	assert.Equal(t, "must be less than or equal to 100", m["rate"])
	assert.Equal(t, "must be greater than 0", m["ceiling"])
	assert.Equal(t, "is required", m["mode"])

	ok := decimal.NewFromInt(12)
	assert.NoError(t, Struct(rateConfig{Rate: &ok, Ceiling: decimal.NewFromInt(15000), Mode: "FIXED"}))
	assert.NoError(t, Struct(rateConfig{Ceiling: decimal.NewFromInt(1), Mode: "PERCENT_OF_BASIC"}))
}
