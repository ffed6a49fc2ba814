package bodyparser_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/chiwarp/bodyparser"
)

type captured struct {
	value  any
	parsed bool
	raw    []byte
	body   string
	called bool
}

func run(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, *captured) {
	t.Helper()
	c := &captured{}
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.value, c.parsed = bodyparser.Body(r)
		c.raw = bodyparser.Raw(r)
		b, _ := io.ReadAll(r.Body)
		c.body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, c
}

func post(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestJSON_Parses(t *testing.T) {
	payload := `{"name":"warp","tags":["a","b"]}`
	rec, c := run(t, bodyparser.JSON(bodyparser.Options{}), post(payload, "application/json; charset=utf-8"))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, c.parsed)
	assert.Equal(t, map[string]any{"name": "warp", "tags": []any{"a", "b"}}, c.value)
	assert.Equal(t, payload, string(c.raw))
	assert.Equal(t, payload, c.body, "body must be replayed for downstream readers")
}

func TestJSON_VendorType(t *testing.T) {
	_, c := run(t, bodyparser.JSON(bodyparser.Options{}), post(`[1,2]`, "application/vnd.api+json"))
	assert.Equal(t, []any{float64(1), float64(2)}, c.value)
}

func TestJSON_SkipsOtherRequests(t *testing.T) {
	_, c := run(t, bodyparser.JSON(bodyparser.Options{}), post("a=1", "application/x-www-form-urlencoded"))
	assert.True(t, c.called)
	assert.False(t, c.parsed)
	assert.Equal(t, "a=1", c.body)

	_, c = run(t, bodyparser.JSON(bodyparser.Options{}), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, c.called)
	assert.False(t, c.parsed)
}

func TestJSON_Malformed(t *testing.T) {
	rec, c := run(t, bodyparser.JSON(bodyparser.Options{}), post(`{"broken"`, "application/json"))
	assert.False(t, c.called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, http.StatusBadRequest, resp["statusCode"])
}

func TestJSON_Strict(t *testing.T) {
	rec, _ := run(t, bodyparser.JSON(bodyparser.Options{Strict: true}), post(`"just a string"`, "application/json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, c := run(t, bodyparser.JSON(bodyparser.Options{}), post(`"just a string"`, "application/json"))
	assert.Equal(t, "just a string", c.value)
}

func TestJSON_Limit(t *testing.T) {
	rec, c := run(t, bodyparser.JSON(bodyparser.Options{Limit: 8}), post(`{"a":"0123456789"}`, "application/json"))
	assert.False(t, c.called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestJSON_ParsesOnce(t *testing.T) {
	chain := func(next http.Handler) http.Handler {
		return bodyparser.JSON(bodyparser.Options{})(bodyparser.JSON(bodyparser.Options{Limit: 1})(next))
	}
	rec, c := run(t, chain, post(`{"a":1}`, "application/json"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, c.parsed)
}

func TestURLEncoded_Flat(t *testing.T) {
	_, c := run(t, bodyparser.URLEncoded(bodyparser.Options{}),
		post("name=warp+drive&tag=a&tag=b&user[name]=x", "application/x-www-form-urlencoded"))

	require.True(t, c.parsed)
	assert.Equal(t, map[string]any{
		"name":       "warp drive",
		"tag":        []string{"a", "b"},
		"user[name]": "x",
	}, c.value)
}

func TestURLEncoded_Extended(t *testing.T) {
	body := strings.Join([]string{
		"user[name]=ada",
		"user[address][city]=london",
		"tags[]=x",
		"tags[]=y",
		"items[1]=second",
		"items[0]=first",
		"dup=1",
		"dup=2",
		"low[99]=sparse",
		"big[150]=sparse",
		"enc%5Bkey%5D=%C3%A9",
	}, "&")

	_, c := run(t, bodyparser.URLEncoded(bodyparser.Options{Extended: true}),
		post(body, "application/x-www-form-urlencoded"))

	require.True(t, c.parsed)
	assert.Equal(t, map[string]any{
		"user": map[string]any{
			"name":    "ada",
			"address": map[string]any{"city": "london"},
		},
		"tags":  []any{"x", "y"},
		"items": []any{"first", "second"},
		"dup":   []any{"1", "2"},
		"low":   []any{"sparse"},
		"big":   map[string]any{"150": "sparse"},
		"enc":   map[string]any{"key": "é"},
	}, c.value)
}

func TestURLEncoded_DepthLimit(t *testing.T) {
	key := "a" + strings.Repeat("[x]", 34)
	_, c := run(t, bodyparser.URLEncoded(bodyparser.Options{Extended: true}),
		post(key+"=deep", "application/x-www-form-urlencoded"))

	node := c.value.(map[string]any)["a"].(map[string]any)
	for range 32 {
		node = node["x"].(map[string]any)
	}
	assert.Equal(t, "deep", node["[x][x]"])
}

func TestURLEncoded_MixedIndices(t *testing.T) {
	cases := []struct {
		body string
		want any
	}{
		{"a[1]=x&a[]=y", []any{"x", "y"}},
		{"a[5]=x&a[]=y&a[]=z", []any{"x", "y", "z"}},
		{"a[]=x&a[3]=y&a[]=z", []any{"x", "y", "z"}},
	}

	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			_, c := run(t, bodyparser.URLEncoded(bodyparser.Options{Extended: true}),
				post(tc.body, "application/x-www-form-urlencoded"))

			require.True(t, c.parsed)
			assert.Equal(t, tc.want, c.value.(map[string]any)["a"])
		})
	}
}

func TestURLEncoded_ArrayLimitGrowsWithPairs(t *testing.T) {
	pairs := []string{"n[149]=v"}
	for i := range 149 {
		pairs = append(pairs, "pad"+strconv.Itoa(i)+"=1")
	}
	_, c := run(t, bodyparser.URLEncoded(bodyparser.Options{Extended: true}),
		post(strings.Join(pairs, "&"), "application/x-www-form-urlencoded"))

	require.True(t, c.parsed)
	assert.Equal(t, []any{"v"}, c.value.(map[string]any)["n"])
}

func TestURLEncoded_ParameterLimit(t *testing.T) {
	rec, c := run(t, bodyparser.URLEncoded(bodyparser.Options{ParameterLimit: 2}),
		post("a=1&b=2&c=3", "application/x-www-form-urlencoded"))
	assert.False(t, c.called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestURLEncoded_BadEscape(t *testing.T) {
	rec, _ := run(t, bodyparser.URLEncoded(bodyparser.Options{}),
		post("a=%zz", "application/x-www-form-urlencoded"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
