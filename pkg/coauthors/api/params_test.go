package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsParse(t *testing.T) {
	args := Args{
		{Name: "q", Required: true, Sanitize: strings.TrimSpace},
		{Name: "exclude", List: true, Sanitize: strings.TrimSpace},
	}

	t.Run("ListForms", func(t *testing.T) {
		parsed, err := args.Parse(url.Values{
			"q":         {" text "},
			"exclude":   {"a, b"},
			"exclude[]": {"c", " "},
		})
		require.NoError(t, err)
		assert.Equal(t, "text", parsed.Get("q"))
		assert.Equal(t, []string{"a", "b", "c"}, parsed["exclude"])
	})

	t.Run("EmptyValueStillPresent", func(t *testing.T) {
		parsed, err := args.Parse(url.Values{"q": {""}})
		require.NoError(t, err)
		assert.Equal(t, "", parsed.Get("q"))
		assert.Nil(t, parsed["exclude"])
	})

	t.Run("ListSanitizer", func(t *testing.T) {
		listArgs := Args{{Name: "exclude", List: true, SanitizeList: func(values []string) []string {
			return []string{strings.Join(values, "|")}
		}}}
		parsed, err := listArgs.Parse(url.Values{"exclude[]": {"a,b", "c"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a|b|c"}, parsed["exclude"])
	})

	t.Run("MissingRequired", func(t *testing.T) {
		_, err := args.Parse(url.Values{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Data.Status)
		assert.Equal(t, []string{"q"}, apiErr.Data.Params)
	})
}

func TestRequestParams(t *testing.T) {
	t.Run("JSONOverridesQuery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/?a=query&b=kept",
			strings.NewReader(`{"a":"body","n":3,"flag":true,"list":["x","y"],"none":null}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		params, err := requestParams(req)
		require.NoError(t, err)
		assert.Equal(t, "body", params.Get("a"))
		assert.Equal(t, "kept", params.Get("b"))
		assert.Equal(t, "3", params.Get("n"))
		assert.Equal(t, "true", params.Get("flag"))
		assert.Equal(t, []string{"x", "y"}, params["list"])
		_, hasNone := params["none"]
		assert.False(t, hasNone)
	})

	t.Run("EmptyJSONBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/?a=1", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/json")
		params, err := requestParams(req)
		require.NoError(t, err)
		assert.Equal(t, "1", params.Get("a"))
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		big := strings.Repeat("x", maxBodyBytes)
		for _, tc := range []struct {
			contentType string
			body        string
		}{
			{"application/json", `{"guest_name":"` + big + `"}`},
			{"application/x-www-form-urlencoded", "guest_name=" + big},
		} {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			_, err := requestParams(req)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr, tc.contentType)
			assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.Data.Status, tc.contentType)
		}
	})
}
