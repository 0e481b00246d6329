package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todolist/internal/model"
)

func TestDraft(t *testing.T) {
	v := New()

	t.Run("whitespace title is rejected", func(t *testing.T) {
		_, err := v.Draft(model.Draft{Title: "   "})
		var errs Errors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, []string{"title is required"}, errs["title"])
	})

	t.Run("trims title and blank description", func(t *testing.T) {
		blank := "  "
		d, err := v.Draft(model.Draft{Title: "  Buy milk ", Description: &blank})
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", d.Title)
		assert.Nil(t, d.Description)
	})

	t.Run("priority out of range", func(t *testing.T) {
		p := model.Priority(7)
		_, err := v.Draft(model.Draft{Title: "x", Priority: &p})
		var errs Errors
		require.True(t, errors.As(err, &errs))
		assert.Contains(t, errs, "priority")
	})

	t.Run("title too long", func(t *testing.T) {
		_, err := v.Draft(model.Draft{Title: strings.Repeat("a", 201)})
		var errs Errors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, []string{"title must be at most 200 characters"}, errs["title"])
	})
}

func TestPatch(t *testing.T) {
	v := New()

	t.Run("absent title is fine", func(t *testing.T) {
		p, err := v.Patch(model.Patch{Priority: model.Some(model.PriorityLow)})
		require.NoError(t, err)
		assert.Equal(t, model.PriorityLow, *p.Priority.Value)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		_, err := v.Patch(model.Patch{Title: model.Some(" ")})
		var errs Errors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, []string{"title is required"}, errs["title"])
	})

	t.Run("null title is rejected", func(t *testing.T) {
		_, err := v.Patch(model.Patch{Title: model.Null[string]()})
		require.Error(t, err)
	})

	t.Run("description trimmed to null", func(t *testing.T) {
		p, err := v.Patch(model.Patch{Description: model.Some("   ")})
		require.NoError(t, err)
		assert.True(t, p.Description.Set)
		assert.Nil(t, p.Description.Value)
	})
}

func TestErrorsMessage(t *testing.T) {
	errs := Errors{}
	errs.Add("title", "title is required")
	errs.Add("priority", "priority must be at most 3")
	assert.Equal(t, "validation failed: priority: priority must be at most 3; title: title is required", errs.Error())
}
