package handlers

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"blogstats/internal/store"
)

func TestIntParam(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"absent", "", 7, false},
		{"zero", "0", 0, false},
		{"positive", "42", 42, false},
		{"padded", " 5 ", 5, false},
		{"negative", "-1", 0, true},
		{"word", "ten", 0, true},
		{"float", "1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			if tt.raw != "" {
				q.Set("n", tt.raw)
			}
			got, err := intParam(q, "n", 7)
			if tt.wantErr {
				if !errors.Is(err, store.ErrInvalidFilter) {
					t.Fatalf("err = %v, want ErrInvalidFilter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTimeParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-03-01T10:00:00+02:00", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), false},
		{"03/01/2026", time.Time{}, true},
		{"2026-13-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := timeParam(url.Values{"from": {tt.raw}}, "from")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("got %v, want %v in UTC", got, tt.want)
			}
		})
	}

	got, err := timeParam(url.Values{}, "from")
	if err != nil || got != nil {
		t.Errorf("absent parameter: got %v, %v; want nil, nil", got, err)
	}
}

func TestListParam(t *testing.T) {
	got := listParam(url.Values{"include": {" user, ,tags,"}}, "include")
	if strings.Join(got, "|") != "user|tags" {
		t.Errorf("got %q, want [user tags]", got)
	}
	if got := listParam(url.Values{}, "include"); got != nil {
		t.Errorf("absent parameter: got %q, want nil", got)
	}
}

func TestSearchTerm(t *testing.T) {
	term, err := searchTerm(url.Values{"q": {"  full text  "}})
	if err != nil || term != "full text" {
		t.Errorf("got %q, %v; want %q", term, err, "full text")
	}

	term, err = searchTerm(url.Values{})
	if err != nil || term != "" {
		t.Errorf("blank term: got %q, %v", term, err)
	}

	long := strings.Repeat("é", maxSearchTermLen+1)
	if _, err := searchTerm(url.Values{"q": {long}}); !errors.Is(err, store.ErrInvalidFilter) {
		t.Errorf("long term: err = %v, want ErrInvalidFilter", err)
	}

	exact := strings.Repeat("é", maxSearchTermLen)
	if _, err := searchTerm(url.Values{"q": {exact}}); err != nil {
		t.Errorf("term at the limit should pass, got %v", err)
	}
}

func TestPostQueryOffsets(t *testing.T) {
	tests := []struct {
		page, perPage string
		offset, limit int
	}{
		{"", "", 0, store.DefaultLimit},
		{"1", "10", 0, 10},
		{"2", "10", 10, 10},
		{"5", "100", 400, 100},
	}

	for _, tt := range tests {
		t.Run(tt.page+"/"+tt.perPage, func(t *testing.T) {
			v := url.Values{}
			if tt.page != "" {
				v.Set("page", tt.page)
			}
			if tt.perPage != "" {
				v.Set("per_page", tt.perPage)
			}
			q, err := postQuery(v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Limit != tt.limit || q.Offset == nil || *q.Offset != tt.offset {
				t.Errorf("limit/offset = %d/%v, want %d/%d", q.Limit, q.Offset, tt.limit, tt.offset)
			}
		})
	}
}

func TestPostFilterPublishedRange(t *testing.T) {
	tests := []struct {
		name string
		to   string
		want time.Time
	}{
		{"plain date covers the day", "2026-03-10", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"timestamp is exact", "2026-03-10T15:30:00Z", time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := postFilter(url.Values{"from": {"2026-03-10"}, "to": {tt.to}})
			if err != nil {
				t.Fatalf("postFilter: %v", err)
			}
			if f.PublishedTo == nil || !f.PublishedTo.Equal(tt.want) {
				t.Errorf("to: got %v, want %v", f.PublishedTo, tt.want)
			}
			if !f.PublishedFrom.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("from: got %v", f.PublishedFrom)
			}
		})
	}

	if _, err := postFilter(url.Values{"from": {"2026-03-10"}, "to": {"2026-03-09"}}); !errors.Is(err, store.ErrInvalidFilter) {
		t.Errorf("reversed range: err = %v, want ErrInvalidFilter", err)
	}
}
