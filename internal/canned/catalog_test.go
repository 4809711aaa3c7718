package canned

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() Catalog {
	return NewCatalog([]Message{
		{ID: "1", Title: "Welcome", Shortcut: "wel", Body: "Welcome! How can I help?"},
		{ID: "2", Title: "Invoice copy", Shortcut: "inv", Body: "Attached is your invoice."},
		{ID: "3", Title: "Refund", Shortcut: "ref", Body: "Your INVOICE was refunded."},
		{ID: "4", Title: "Goodbye", Shortcut: "bye", Body: "Have a great day."},
	})
}

func TestCatalogFilter(t *testing.T) {
	c := sampleCatalog()

	require.Len(t, c.Filter("", 10), 4)

	got := c.Filter("inv", 10)
	require.Len(t, got, 2)
	require.Equal(t, "2", got[0].ID)
	require.Equal(t, "3", got[1].ID)

	require.Len(t, c.Filter("INV", 1), 1)
	require.Empty(t, c.Filter("zzz", 10))
}

func TestCatalogFilterLimit(t *testing.T) {
	items := make([]Message, 0, 25)
	for i := range 25 {
		items = append(items, Message{ID: fmt.Sprint(i), Title: fmt.Sprintf("Reply %d", i), Body: "body"})
	}
	c := NewCatalog(items)
	got := c.Filter("", 10)
	require.Len(t, got, 10)
	require.Equal(t, "0", got[0].ID)
	require.Equal(t, "9", got[9].ID)
}

func TestCatalogGet(t *testing.T) {
	c := sampleCatalog()
	m, err := c.Get("4")
	require.NoError(t, err)
	require.Equal(t, "Goodbye", m.Title)

	_, err = c.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

type failingSource struct{}

func (failingSource) List(context.Context, ListOptions) ([]Message, error) {
	return nil, errors.New("backend down")
}

func TestLoad(t *testing.T) {
	c, err := Load(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Zero(t, c.Len())

	_, err = Load(context.Background(), failingSource{}, 0)
	require.ErrorContains(t, err, "backend down")
}

func TestHTTPSourceList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/canned_messages", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("is_active"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","title":"Welcome","shortcut":"wel","body":"Welcome!","is_active":true},
			{"id":"2","title":"Old","shortcut":"old","body":"Old","is_active":false}
		]}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/api/", "secret", srv.Client())
	require.NoError(t, err)

	c, err := Load(context.Background(), src, 50)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, "Welcome!", c.Items()[0].Body)
}

func TestHTTPSourceBareArrayAndErrors(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`[{"id":"1","title":"A","body":"a","is_active":true}]`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, "", nil)
	require.NoError(t, err)

	items, err := src.List(context.Background(), ListOptions{IsActive: true})
	require.NoError(t, err)
	require.Len(t, items, 1)

	status = http.StatusUnauthorized
	_, err = src.List(context.Background(), ListOptions{})
	require.ErrorContains(t, err, "401")

	_, err = NewHTTPSource("  ", "", nil)
	require.Error(t, err)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`messages:
  - title: Welcome
    shortcut: wel
    body: "Welcome!"
    active: true
  - title: Draft only
    body: "Not ready"
    active: false
`), 0o644))

	src := NewFileSource(path)
	items, err := src.List(context.Background(), ListOptions{IsActive: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "wel", items[0].ID)

	missing := NewFileSource(filepath.Join(dir, "nope.yaml"))
	items, err = missing.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestParseYAMLValidation(t *testing.T) {
	_, err := ParseYAML([]byte("messages:\n  - title: x\n"))
	require.ErrorContains(t, err, "body is required")

	_, err = ParseYAML([]byte("messages:\n  - {id: a, title: x, body: y}\n  - {id: a, title: z, body: w}\n"))
	require.ErrorContains(t, err, "duplicate id")

	_, err = ParseYAML([]byte("messages:\n  - {title: x, shortcut: \"a b\", body: y}\n"))
	require.ErrorContains(t, err, "whitespace")
}

func TestEncodeYAMLRoundTrip(t *testing.T) {
	in := []Message{{ID: "wel", Title: "Welcome", Shortcut: "wel", Body: "Hi!", Active: true}}
	data, err := EncodeYAML(in)
	require.NoError(t, err)
	out, err := ParseYAML(data)
	require.NoError(t, err)
	require.Equal(t, in, out)
}
