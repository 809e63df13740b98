package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFiltersFromQueryDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/phones", nil)
	filters := FiltersFromQuery(r)
	require.Equal(t, 1, filters.Page)
	require.Equal(t, 20, filters.Limit)
	require.Empty(t, filters.Search)
}

func TestFiltersFromQueryClamps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/phones?page=-3&limit=9999", nil)
	filters := FiltersFromQuery(r)
	require.Equal(t, 1, filters.Page)
	require.Equal(t, 100, filters.Limit)

	r = httptest.NewRequest(http.MethodGet, "/phones?page=4&limit=50&search=iphone&sort=brand&dir=desc", nil)
	filters = FiltersFromQuery(r)
	require.Equal(t, 4, filters.Page)
	require.Equal(t, 50, filters.Limit)
	require.Equal(t, "iphone", filters.Search)
	require.Equal(t, "brand", filters.SortBy)
	require.Equal(t, "desc", filters.SortDir)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 0, p.TotalPages)
}
