package internal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
)

func TestView_TemplateName(t *testing.T) {
	t.Parallel()

	v := internal.NewView(nil, "user", "main", "show", "en", "http://example.com")

	assert.Equal(t, "user/show", v.TemplateName("", false))
	assert.Equal(t, "user/edit", v.TemplateName("edit", false))
	assert.Equal(t, "shared/nav", v.TemplateName("shared/nav", true))
	assert.Equal(t, "show", v.TemplateName("", true))
}

func TestView_Render(t *testing.T) {
	t.Parallel()

	var (
		gotName, gotLayout string
		gotData            map[string]any
	)
	r := internal.RendererFunc(func(_ context.Context, name, layout string, data map[string]any) (string, error) {
		gotName, gotLayout, gotData = name, layout, data
		return "<p>ok</p>", nil
	})

	v := internal.NewView(r, "user", "main", "show", "de", "https://example.com")
	v.Set("title", "shared")
	v.Set("user", "ann")

	html, err := v.Render(context.Background(), map[string]any{"title": "override"}, "", false)
	require.NoError(t, err)

	assert.Equal(t, "<p>ok</p>", html)
	assert.Equal(t, "user/show", gotName)
	assert.Equal(t, "main", gotLayout)
	assert.Equal(t, map[string]any{
		"controller": "user",
		"action":     "show",
		"lang":       "de",
		"base_url":   "https://example.com",
		"title":      "override",
		"user":       "ann",
	}, gotData)
	assert.Equal(t, map[string]any{"title": "shared", "user": "ann"}, v.Data())
}

func TestView_RenderWithoutRenderer(t *testing.T) {
	t.Parallel()

	v := internal.NewView(nil, "user", "", "show", "", "")
	_, err := v.Render(context.Background(), nil, "", false)
	assert.ErrorIs(t, err, internal.ErrNoRenderer)
}
