package internal

import (
	"context"
	"maps"
	"path"
	"time"
)

// Renderer turns a named template into markup.
type Renderer interface {
	Render(ctx context.Context, name, layout string, data map[string]any) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, name, layout string, data map[string]any) (string, error)

func (f RendererFunc) Render(ctx context.Context, name, layout string, data map[string]any) (string, error) {
	return f(ctx, name, layout, data)
}

// View carries what templates need to know about the current dispatch.
type View struct {
	renderer   Renderer
	data       map[string]any
	Controller string
	Layout     string
	Action     string
	Lang       string
	BaseURL    string
	// Location is the application time zone.
	Location *time.Location
}

// NewView creates a View rendering through r.
func NewView(r Renderer, controller, layout, action, lang, baseURL string) *View {
	return &View{
		renderer:   r,
		data:       make(map[string]any),
		Controller: controller,
		Layout:     layout,
		Action:     action,
		Lang:       lang,
		BaseURL:    baseURL,
	}
}

// Set stores a value passed to every template rendered by this view.
func (v *View) Set(key string, val any) {
	v.data[key] = val
}

// Data returns a copy of the shared template values.
func (v *View) Data() map[string]any {
	return maps.Clone(v.data)
}

// TemplateName returns the name Render resolves template to.
// An empty template means the current action. Unless skipControllerDir is
// set, the name is placed under the controller's directory.
func (v *View) TemplateName(template string, skipControllerDir bool) string {
	if template == "" {
		template = v.Action
	}
	if skipControllerDir {
		return template
	}
	return path.Join(v.Controller, template)
}

// Render renders template with data merged over the shared values.
// The view fields are available as "controller", "action", "lang" and "base_url".
func (v *View) Render(ctx context.Context, data map[string]any, template string, skipControllerDir bool) (string, error) {
	if v.renderer == nil {
		return "", ErrNoRenderer
	}
	merged := map[string]any{
		"controller": v.Controller,
		"action":     v.Action,
		"lang":       v.Lang,
		"base_url":   v.BaseURL,
	}
	maps.Copy(merged, v.data)
	maps.Copy(merged, data)
	return v.renderer.Render(ctx, v.TemplateName(template, skipControllerDir), v.Layout, merged)
}
