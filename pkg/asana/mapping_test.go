package asana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestMapProject(t *testing.T) {
	fields := FieldConfig{NumberFieldID: "num-1"}

	t.Run("extracts number field as project number", func(t *testing.T) {
		remote := RemoteProject{
			GID:  "proj-1",
			Name: "  Holzbau Meier  ",
			CustomFields: []CustomField{
				{GID: "other", TextValue: ptr("ignore me")},
				{GID: "num-1", TextValue: ptr("2024-017")},
			},
		}

		mapped := MapProject(remote, fields)

		assert.Equal(t, "proj-1", mapped.GID)
		assert.Equal(t, "Holzbau Meier", mapped.Name)
		assert.Equal(t, "2024-017", mapped.ProjectNumber)
		assert.False(t, mapped.Archived)
	})

	t.Run("numeric project number is formatted without exponent", func(t *testing.T) {
		remote := RemoteProject{
			GID:          "proj-2",
			Name:         "Dachstuhl Brenner",
			CustomFields: []CustomField{{GID: "num-1", NumberValue: ptr(2024017.0)}},
		}

		mapped := MapProject(remote, fields)

		assert.Equal(t, "2024017", mapped.ProjectNumber)
	})

	t.Run("missing field config leaves project number empty", func(t *testing.T) {
		remote := RemoteProject{
			GID:          "proj-3",
			Name:         "Carport Huber",
			CustomFields: []CustomField{{GID: "num-1", TextValue: ptr("2024-099")}},
		}

		mapped := MapProject(remote, FieldConfig{})

		assert.Empty(t, mapped.ProjectNumber)
	})

	t.Run("archived flag is carried through", func(t *testing.T) {
		mapped := MapProject(RemoteProject{GID: "proj-4", Archived: true}, fields)
		assert.True(t, mapped.Archived)
	})

	t.Run("extracts soll hours per bereich", func(t *testing.T) {
		sollFields := FieldConfig{
			SollProduktionFieldID: "sp-1",
			SollMontageFieldID:    "sm-1",
		}
		remote := RemoteProject{
			GID:  "proj-5",
			Name: "Aufstockung Keller",
			CustomFields: []CustomField{
				{GID: "sp-1", NumberValue: ptr(240.0)},
				{GID: "sm-1", NumberValue: ptr(80.0)},
			},
		}

		mapped := MapProject(remote, sollFields)

		if assert.NotNil(t, mapped.SollProduktion) {
			assert.Equal(t, 240.0, *mapped.SollProduktion)
		}
		if assert.NotNil(t, mapped.SollMontage) {
			assert.Equal(t, 80.0, *mapped.SollMontage)
		}
	})

	t.Run("unconfigured soll fields stay nil", func(t *testing.T) {
		remote := RemoteProject{
			GID:          "proj-6",
			CustomFields: []CustomField{{GID: "sp-1", NumberValue: ptr(240.0)}},
		}

		mapped := MapProject(remote, fields)

		assert.Nil(t, mapped.SollProduktion)
		assert.Nil(t, mapped.SollMontage)
	})
}

func TestMapSection(t *testing.T) {
	fields := FieldConfig{
		BereichFieldID:     "ber-1",
		BudgetHoursFieldID: "bud-1",
	}

	t.Run("extracts bereich and budget hours", func(t *testing.T) {
		remote := RemoteSection{
			GID:  "sec-1",
			Name: "Abbund",
			CustomFields: []CustomField{
				{GID: "ber-1", EnumValue: &EnumValue{GID: "e1", Name: "Produktion"}},
				{GID: "bud-1", NumberValue: ptr(120.5)},
			},
		}

		mapped := MapSection(remote, fields)

		assert.Equal(t, "sec-1", mapped.GID)
		assert.Equal(t, "Abbund", mapped.Name)
		assert.Equal(t, "produktion", mapped.Bereich)
		if assert.NotNil(t, mapped.BudgetHours) {
			assert.Equal(t, 120.5, *mapped.BudgetHours)
		}
	})

	t.Run("unset enum leaves bereich empty", func(t *testing.T) {
		remote := RemoteSection{
			GID:          "sec-2",
			Name:         "Montage vor Ort",
			CustomFields: []CustomField{{GID: "ber-1"}},
		}

		mapped := MapSection(remote, fields)

		assert.Empty(t, mapped.Bereich)
		assert.Nil(t, mapped.BudgetHours)
	})

	t.Run("budget hours pointer is a copy", func(t *testing.T) {
		value := 40.0
		remote := RemoteSection{
			GID:          "sec-3",
			Name:         "Richten",
			CustomFields: []CustomField{{GID: "bud-1", NumberValue: &value}},
		}

		mapped := MapSection(remote, fields)

		value = 99.0
		assert.Equal(t, 40.0, *mapped.BudgetHours)
	})
}

func TestCustomFieldStringValue(t *testing.T) {
	assert.Equal(t, "abc", CustomField{TextValue: ptr("abc")}.StringValue())
	assert.Equal(t, "Montage", CustomField{EnumValue: &EnumValue{Name: "Montage"}}.StringValue())
	assert.Equal(t, "12.5", CustomField{NumberValue: ptr(12.5)}.StringValue())
	assert.Equal(t, "shown", CustomField{DisplayValue: ptr("shown")}.StringValue())
	assert.Empty(t, CustomField{}.StringValue())
}
