package store

import "testing"

// TestCatalogCoversQueryShapes checks that every filter, sort and join key
// used by the listings, rankings and aggregations has a backing index.
func TestCatalogCoversQueryShapes(t *testing.T) {
	required := []struct {
		table   string
		columns []string
	}{
		{"posts", []string{"status"}},
		{"posts", []string{"published_at"}},
		{"posts", []string{"user_id"}},
		{"posts", []string{"category_id"}},
		{"posts", []string{"views_count"}},
		{"posts", []string{"likes_count"}},
		{"posts", []string{"comments_count"}},
		{"posts", []string{"status", "published_at"}},
		{"posts", []string{"category_id", "published_at"}},
		{"posts", []string{"user_id", "published_at"}},
		{"posts", []string{"status", "likes_count"}},
		{"posts", []string{"status", "views_count"}},
		{"comments", []string{"status"}},
		{"comments", []string{"user_id"}},
		{"comments", []string{"post_id"}},
		{"comments", []string{"parent_id"}},
		{"comments", []string{"likes_count"}},
		{"comments", []string{"post_id", "status"}},
		{"comments", []string{"user_id", "status"}},
		{"comments", []string{"parent_id", "status"}},
		{"comments", []string{"status", "likes_count"}},
		{"likes", []string{"user_id"}},
		{"likes", []string{"target_kind", "target_id"}},
		{"views", []string{"post_id"}},
		{"views", []string{"user_id"}},
		{"views", []string{"ip_address"}},
		{"views", []string{"viewed_at"}},
		{"views", []string{"post_id", "viewed_at"}},
		{"views", []string{"ip_address", "viewed_at"}},
		{"views", []string{"user_id", "viewed_at"}},
		{"categories", []string{"name"}},
		{"categories", []string{"user_id"}},
		{"categories", []string{"is_active"}},
		{"tags", []string{"name"}},
		{"post_tag", []string{"post_id", "tag_id"}},
		{"post_tag", []string{"tag_id", "post_id"}},
	}
	for _, r := range required {
		if !Catalog.Has(r.table, r.columns...) {
			t.Errorf("missing index on %s%v", r.table, r.columns)
		}
	}

	if !Catalog.HasKind("posts", "search_vector", IndexFullText) {
		t.Error("missing full-text index on posts.search_vector")
	}
}

func TestCatalogUniqueAndNames(t *testing.T) {
	seen := map[string]bool{}
	var uniques []string
	for _, idx := range Catalog.Indexes() {
		if seen[idx.Name] {
			t.Errorf("duplicate index name %q", idx.Name)
		}
		seen[idx.Name] = true
		if idx.Unique {
			uniques = append(uniques, idx.Name)
		}
	}
	want := map[string]bool{"idx_post_tag_post_tag": true, "idx_likes_user_target": true}
	if len(uniques) != len(want) {
		t.Fatalf("unique indexes: got %v", uniques)
	}
	for _, name := range uniques {
		if !want[name] {
			t.Errorf("unexpected unique index %q", name)
		}
	}
}

func TestCatalogSupports(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		equality []string
		sort     string
		want     bool
	}{
		{"id always", "posts", nil, "id", true},
		{"single column sort", "posts", nil, "likes_count", true},
		{"status then published", "posts", []string{"status"}, "published_at", true},
		{"category then published", "posts", []string{"category_id"}, "published_at", true},
		{"equality column sort", "posts", []string{"status"}, "status", true},
		{"unindexed column", "posts", nil, "title", false},
		{"trigram is not ordered", "tags", nil, "slug", false},
		{"comments created", "comments", []string{"post_id"}, "created_at", true},
		{"comments status likes", "comments", []string{"status"}, "likes_count", true},
		{"unknown table", "nope", nil, "created_at", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Catalog.Supports(tt.table, tt.equality, tt.sort); got != tt.want {
				t.Errorf("Supports(%s, %v, %s) = %v, want %v", tt.table, tt.equality, tt.sort, got, tt.want)
			}
		})
	}
}

func TestVerifyIndexes(t *testing.T) {
	db := testDB(t)
	missing, err := VerifyIndexes(t.Context(), db)
	if err != nil {
		t.Fatalf("VerifyIndexes: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("indexes missing after migration: %v", missing)
	}
}
