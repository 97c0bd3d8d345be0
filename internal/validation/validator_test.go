package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/validation"
)

type createRequest struct {
	Title       string `json:"title" validate:"max=200"`
	VerbeteType string `json:"verbete_type" validate:"required,verbete_type"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus())
	d, ok := de.Details.(map[string]string)
	require.True(t, ok, "details should be a field map")
	return d
}

func TestValidator_Struct(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(createRequest{Title: "Pixinguinha", VerbeteType: "person"}))

	err := v.Validate(createRequest{VerbeteType: "planet"})
	assert.Equal(t, "must be a known verbete type", details(t, err)["verbete_type"])

	err = v.Validate(createRequest{})
	assert.Equal(t, "is required", details(t, err)["verbete_type"])
}

func TestValidator_FieldsComplete(t *testing.T) {
	v := validation.New()

	err := v.Fields(domain.TypePerson, map[string]string{}, validation.Complete)
	assert.Equal(t, "is required", details(t, err)["birth_date"])

	err = v.Fields(domain.TypePerson, map[string]string{"birth_date": "1897-04-23"}, validation.Complete)
	assert.NoError(t, err)

	assert.NoError(t, v.Fields(domain.TypeConcept, nil, validation.Complete))
}

func TestValidator_FieldsPartial(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Fields(domain.TypePerson, map[string]string{}, validation.Partial))

	err := v.Fields(domain.TypePerson, map[string]string{"birth_date": "23/04/1897"}, validation.Partial)
	assert.Contains(t, details(t, err)["birth_date"], "YYYY")

	err = v.Fields(domain.TypePerson, map[string]string{"unknown_key": "whatever"}, validation.Partial)
	assert.NoError(t, err)
}

func TestValidator_FieldsDateOrder(t *testing.T) {
	v := validation.New()

	err := v.Fields(domain.TypePerson, map[string]string{
		"birth_date": "1897",
		"death_date": "1890",
	}, validation.Partial)
	assert.Equal(t, "must not be before birth_date", details(t, err)["death_date"])

	err = v.Fields(domain.TypeEvent, map[string]string{
		"start_date": "1922-02-13",
		"end_date":   "1922-02-17",
	}, validation.Complete)
	assert.NoError(t, err)
}

func TestValidator_FieldsUnknownType(t *testing.T) {
	err := validation.New().Fields(domain.VerbeteType("planet"), nil, validation.Partial)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestValidator_Patch(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Patch(domain.TypePerson, map[string]string{"death_date": "", "occupation": "músico"}))

	err := v.Patch(domain.TypePerson, map[string]string{"birth_date": "  "})
	assert.Equal(t, "is required and cannot be cleared", details(t, err)["birth_date"])

	err = v.Patch(domain.TypeWork, map[string]string{"creation_date": "sometime"})
	assert.Contains(t, details(t, err), "creation_date")
}

func TestMergeDetails(t *testing.T) {
	a := domainerrors.ValidationWithDetails("validation failed", map[string]string{"title": "is required"})
	b := domainerrors.ValidationWithDetails("validation failed", map[string]string{"birth_date": "is required"})

	merged := details(t, validation.MergeDetails(a, b))
	assert.Len(t, merged, 2)

	assert.Nil(t, validation.MergeDetails(nil, nil))
	assert.Equal(t, a, validation.MergeDetails(a, nil))
}
