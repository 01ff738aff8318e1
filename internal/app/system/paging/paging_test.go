package paging

import (
	"net/http/httptest"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Params
	}{
		{0, 0, Params{1, DefaultLimit}},
		{-3, 5, Params{1, 5}},
		{2, 1000, Params{2, MaxLimit}},
		{4, 25, Params{4, 25}},
		{1, -1, Params{1, DefaultLimit}},
	}
	for _, tt := range tests {
		if got := Clamp(tt.page, tt.limit); got != tt.want {
			t.Errorf("Clamp(%d, %d) = %+v, want %+v", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		url  string
		want Params
	}{
		{"/api/materials", Params{1, DefaultLimit}},
		{"/api/materials?page=3&limit=20", Params{3, 20}},
		{"/api/materials?page=abc&limit=xyz", Params{1, DefaultLimit}},
		{"/api/materials?limit=500", Params{1, MaxLimit}},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.url, nil)
		if got := Parse(req); got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.url, got, tt.want)
		}
	}
}

func TestSkip(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Skip(); got != 20 {
		t.Errorf("Skip = %d, want 20", got)
	}
	if got := (Params{Page: 1, Limit: 10}).Skip(); got != 0 {
		t.Errorf("Skip = %d, want 0", got)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{250, 100, 3},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
