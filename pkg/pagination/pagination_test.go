package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/palette/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 50}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  pagination.PageRequest
	}{
		{"defaults", "", pagination.PageRequest{Page: 1, PageSize: 20}},
		{"clamped size", "page=3&pageSize=500", pagination.PageRequest{Page: 3, PageSize: 50}},
		{
			"sort",
			"sort=-updatedAt",
			pagination.PageRequest{Page: 1, PageSize: 20, Sort: pagination.SortFields{{Field: "updatedAt", Descending: true}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got := pagination.PageRequestFromQuery(values, cfg)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchFromQuery(t *testing.T) {
	values, _ := url.ParseQuery("search=neon")
	got := pagination.PageRequestFromQuery(values, cfg)
	if got.Search == nil || *got.Search != "neon" {
		t.Errorf("search: %v", got.Search)
	}
}

func TestSortFieldsJSON(t *testing.T) {
	want := pagination.SortFields{{Field: "name"}, {Field: "updatedAt", Descending: true}}

	for _, body := range []string{
		`{"sort":"name,-updatedAt"}`,
		`{"sort":[{"field":"name"},{"field":"updatedAt","descending":true}]}`,
	} {
		var req pagination.PageRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if diff := cmp.Diff(want, req.Sort); diff != "" {
			t.Errorf("%s (-want +got):\n%s", body, diff)
		}
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		total, size, pages int
	}{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 20, 5},
	}

	for _, tt := range tests {
		r := pagination.NewPageResult[int](nil, tt.total, 1, tt.size)
		if r.TotalPages != tt.pages {
			t.Errorf("total=%d size=%d: pages %d, want %d", tt.total, tt.size, r.TotalPages, tt.pages)
		}
		if r.Data == nil {
			t.Error("data should be non-nil")
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PAGE_MAX", "200")

	c := pagination.Config{}
	if err := c.Finalize(&pagination.ConfigEnv{MaxPageSize: "TEST_PAGE_MAX"}); err != nil {
		t.Fatal(err)
	}
	if c.DefaultPageSize != 20 || c.MaxPageSize != 200 {
		t.Errorf("got %+v", c)
	}

	bad := pagination.Config{DefaultPageSize: 80, MaxPageSize: 40}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}
