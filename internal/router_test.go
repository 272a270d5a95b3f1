package internal_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
)

func TestRouter_Convention(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter()
	r.Params("user", "show", "id")

	tests := []struct {
		name string
		path string
		want internal.Route
	}{
		{
			name: "controller action and named param",
			path: "/user/show/5",
			want: internal.Route{Controller: "user", Action: "show", Params: []internal.Param{{Name: "id", Value: "5"}}},
		},
		{
			name: "extra params keep their index",
			path: "/user/show/5/extra",
			want: internal.Route{Controller: "user", Action: "show", Params: []internal.Param{
				{Name: "id", Value: "5"},
				{Name: "1", Value: "extra"},
			}},
		},
		{
			name: "unnamed params are indexed",
			path: "/post/list/a/b",
			want: internal.Route{Controller: "post", Action: "list", Params: []internal.Param{
				{Name: "0", Value: "a"},
				{Name: "1", Value: "b"},
			}},
		},
		{
			name: "action defaults to index",
			path: "/user",
			want: internal.Route{Controller: "user", Action: "index"},
		},
		{
			name: "controller is lowercased",
			path: "/User/Show",
			want: internal.Route{Controller: "user", Action: "Show"},
		},
		{
			name: "query and fragment are ignored",
			path: "/user/list?page=2#top",
			want: internal.Route{Controller: "user", Action: "list"},
		},
		{
			name: "escaped segments are decoded",
			path: "/tag/show/go%20lang",
			want: internal.Route{Controller: "tag", Action: "show", Params: []internal.Param{{Name: "0", Value: "go lang"}}},
		},
		{
			name: "root resolves nothing",
			path: "/",
			want: internal.Route{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.ParseURL(tt.path))
		})
	}
}

func TestRouter_Languages(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter(internal.WithLanguages("en", "de", "fr"))

	t.Run("leading language segment", func(t *testing.T) {
		t.Parallel()

		route := r.ParseURL("/de/user/show")
		assert.Equal(t, "user", route.Controller)
		assert.Equal(t, "show", route.Action)
		lang, ok := route.Param(internal.LangParam)
		require.True(t, ok)
		assert.Equal(t, "de", lang)
	})

	t.Run("default language when absent", func(t *testing.T) {
		t.Parallel()

		route := r.ParseURL("/user")
		lang, ok := route.Param(internal.LangParam)
		require.True(t, ok)
		assert.Equal(t, "en", lang)
	})

	t.Run("language alone resolves nothing", func(t *testing.T) {
		t.Parallel()
		assert.False(t, r.ParseURL("/fr").Found())
	})
}

func TestRouter_Overrides(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter(internal.WithLanguages("en"))
	require.NoError(t, r.Handle("/u/{id}", "User", "show"))
	require.NoError(t, r.Handle("/", "home", "index"))

	t.Run("named params from pattern", func(t *testing.T) {
		t.Parallel()

		route := r.ParseURL("/u/42")
		assert.Equal(t, "user", route.Controller)
		assert.Equal(t, "show", route.Action)
		id, _ := route.Param("id")
		assert.Equal(t, "42", id)
		lang, _ := route.Param(internal.LangParam)
		assert.Equal(t, "en", lang)
	})

	t.Run("root override", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "home/index", r.ParseURL("/").String())
	})

	t.Run("convention still applies elsewhere", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "u/index", r.ParseURL("/u").String())
	})

	t.Run("invalid registrations", func(t *testing.T) {
		t.Parallel()

		other := internal.NewRouter()
		assert.Error(t, other.Handle("/x", "", "index"))
		assert.Error(t, other.Handle("/bad/{id", "x", "y"))
	})
}

func TestRouter_BasePath(t *testing.T) {
	t.Parallel()

	r := internal.NewRouter(internal.WithBasePath("/app/"))
	assert.Equal(t, "/app", r.BasePath())
	assert.Equal(t, "user/show", r.ParseURL("/app/user/show").String())
	assert.False(t, r.ParseURL("/app").Found())
}

func TestRouter_BaseURL(t *testing.T) {
	t.Parallel()

	t.Run("configured", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRouter(internal.WithBaseURL("https://example.com/"))
		assert.Equal(t, "https://example.com", r.BaseURL(httptest.NewRequest(http.MethodGet, "/", nil)))
	})

	t.Run("derived from the request", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRouter(internal.WithBasePath("app"))
		req := httptest.NewRequest(http.MethodGet, "http://example.com/app/user", nil)
		assert.Equal(t, "http://example.com/app", r.BaseURL(req))

		req.TLS = &tls.ConnectionState{}
		assert.Equal(t, "https://example.com/app", r.BaseURL(req))
	})

	t.Run("forwarded proto", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRouter()
		req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		assert.Equal(t, "https://example.com", r.BaseURL(req))
	})
}

func TestRoute_Values(t *testing.T) {
	t.Parallel()

	route := internal.Route{Controller: "user", Action: "show", Params: []internal.Param{
		{Name: "lang", Value: "en"},
		{Name: "id", Value: "5"},
	}}
	v := route.Values()
	assert.Equal(t, []string{"lang", "id"}, v.Keys())
	assert.Equal(t, "5", v.String("id"))
	assert.Equal(t, "<none>", internal.Route{}.String())
}
