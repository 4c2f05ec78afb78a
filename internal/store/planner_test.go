package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"blogstats/internal/models"
	"blogstats/internal/slug"
)

// TestFetchQueryCountIndependentOfPageSize checks that a listing costs one
// query for the page plus one per requested relation, whatever the number
// of rows returned.
func TestFetchQueryCountIndependentOfPageSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := range 12 {
		p := f.post(t, fmt.Sprintf("Planner %s %d", f.suffix, i), i, i)
		ids = append(ids, p.ID)
		f.comment(t, p.ID, nil, true)
	}
	if err := NewPostStore(f.db).SetTags(ctx, ids[0], []int64{f.tag.ID}); err != nil {
		t.Fatalf("SetTags: %v", err)
	}

	relationSets := [][]Relation{
		nil,
		{RelUser},
		{RelUser, RelCategory, RelTags},
		{RelUser, RelCategory, RelTags, RelComments, RelCommentsUser},
	}
	for _, rels := range relationSets {
		for _, n := range []int{1, 3, 12} {
			t.Run(fmt.Sprintf("%d relations, %d rows", len(rels), n), func(t *testing.T) {
				counting := NewCountingDB(f.db, 0)
				page, err := NewPostStore(counting).Fetch(ctx, PostQuery{
					Filter:    PostFilter{CategoryID: f.category.ID},
					Relations: rels,
					Limit:     n,
				})
				if err != nil {
					t.Fatalf("Fetch: %v", err)
				}
				if len(page.Items) != n {
					t.Fatalf("items: got %d, want %d", len(page.Items), n)
				}
				if want := int64(1 + len(rels)); counting.Queries() != want {
					t.Errorf("queries: got %d, want %d", counting.Queries(), want)
				}

				counting.Reset()
				for _, item := range page.Items {
					for _, rel := range rels {
						switch rel {
						case RelUser:
							if u, err := item.User(); err != nil || u == nil {
								t.Errorf("user of %d: %v, %v", item.ID, u, err)
							}
						case RelCategory:
							if c, err := item.Category(); err != nil || c.ID != f.category.ID {
								t.Errorf("category of %d: %v, %v", item.ID, c, err)
							}
						case RelTags:
							if _, err := item.Tags(); err != nil {
								t.Errorf("tags of %d: %v", item.ID, err)
							}
						case RelComments:
							cs, err := item.Comments()
							if err != nil || len(cs) != 1 {
								t.Errorf("comments of %d: %d, %v", item.ID, len(cs), err)
								continue
							}
							if u, err := cs[0].User(); err != nil || u.ID != f.user.ID {
								t.Errorf("comment author of %d: %v, %v", item.ID, u, err)
							}
						}
					}
				}
				if counting.Queries() != 0 {
					t.Errorf("reading loaded relations issued %d queries", counting.Queries())
				}
			})
		}
	}
}

// TestFetchCommentAuthorsWithoutComments checks that comment authors are
// not queried when the page has no comments: the listing costs the page
// query plus the comments query, and both relations still read as loaded.
func TestFetchCommentAuthorsWithoutComments(t *testing.T) {
	f := newFixture(t)
	for i := range 3 {
		f.post(t, fmt.Sprintf("Silent %s %d", f.suffix, i), 0, 0)
	}

	counting := NewCountingDB(f.db, 0)
	page, err := NewPostStore(counting).Fetch(context.Background(), PostQuery{
		Filter:    PostFilter{CategoryID: f.category.ID},
		Relations: []Relation{RelComments, RelCommentsUser},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(page.Items))
	}
	if counting.Queries() != 2 {
		t.Errorf("queries: got %d, want 2 (posts, comments)", counting.Queries())
	}
	for _, item := range page.Items {
		cs, err := item.Comments()
		if err != nil || len(cs) != 0 {
			t.Errorf("comments of %d: %v, %v", item.ID, cs, err)
		}
		if !item.Loaded(RelCommentsUser) {
			t.Errorf("comments.user of %d not marked loaded", item.ID)
		}
	}
}

func TestFetchUnrequestedRelationFailsFast(t *testing.T) {
	f := newFixture(t)
	f.post(t, "Lonely "+f.suffix, 0, 0)

	counting := NewCountingDB(f.db, 0)
	page, err := NewPostStore(counting).Fetch(context.Background(), PostQuery{
		Filter: PostFilter{CategoryID: f.category.ID},
		Fields: Fields{"post": {"title"}},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	counting.Reset()
	if _, err := page.Items[0].User(); !errors.Is(err, ErrRelationNotLoaded) {
		t.Errorf("User(): got %v, want ErrRelationNotLoaded", err)
	}
	if counting.Queries() != 0 {
		t.Errorf("unrequested relation issued %d queries", counting.Queries())
	}
	if page.Items[0].Title == "" || page.Items[0].ID == 0 {
		t.Errorf("projected fields not loaded: %+v", page.Items[0].Post)
	}
	if page.Items[0].Content != "" {
		t.Error("content was not requested")
	}
}

func TestFetchPaging(t *testing.T) {
	f := newFixture(t)
	for i := range 5 {
		f.post(t, fmt.Sprintf("Paged %s %d", f.suffix, i), 0, 10-i)
	}
	posts := NewPostStore(f.db)
	ctx := context.Background()
	filter := PostFilter{CategoryID: f.category.ID}
	keys := []SortKey{Desc("views_count")}

	first, err := posts.Rank(ctx, filter, keys, 2, PageOffset(0))
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	last, err := posts.Rank(ctx, filter, keys, 2, PageOffset(4))
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if !first.HasMore || len(first.Items) != 2 {
		t.Errorf("page 1: %d items, has_more %v", len(first.Items), first.HasMore)
	}
	if last.HasMore || len(last.Items) != 1 {
		t.Errorf("page 3: %d items, has_more %v", len(last.Items), last.HasMore)
	}
	if first.Items[0].ViewsCount != 10 || last.Items[0].ViewsCount != 6 {
		t.Errorf("order: first %d, last %d", first.Items[0].ViewsCount, last.Items[0].ViewsCount)
	}
}

func TestRankExample(t *testing.T) {
	f := newFixture(t)
	a := f.post(t, "Fifty "+f.suffix, 50, 1)
	f.post(t, "Ten "+f.suffix, 10, 1)
	c := f.post(t, "Thirty "+f.suffix, 30, 1)

	posts := NewPostStore(f.db)
	filter := PostFilter{CategoryID: f.category.ID}
	page, err := posts.Rank(context.Background(), filter, []SortKey{Desc("likes_count")}, 2, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != a.ID || page.Items[1].ID != c.ID {
		t.Fatalf("rank order: got %+v", page.Items)
	}

	again, err := posts.Rank(context.Background(), filter, []SortKey{Desc("likes_count")}, 2, nil)
	if err != nil {
		t.Fatalf("Rank again: %v", err)
	}
	for i := range page.Items {
		if again.Items[i].ID != page.Items[i].ID {
			t.Errorf("rank is not idempotent at %d", i)
		}
	}
}

func TestRankTotalOrderWithTies(t *testing.T) {
	f := newFixture(t)
	for i := range 6 {
		f.post(t, fmt.Sprintf("Tie %s %d", f.suffix, i), i%2, 3)
	}
	page, err := NewPostStore(f.db).Rank(context.Background(),
		PostFilter{CategoryID: f.category.ID},
		[]SortKey{Desc("likes_count"), Desc("views_count")}, 10, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	for i := 1; i < len(page.Items); i++ {
		prev, cur := page.Items[i-1], page.Items[i]
		switch {
		case prev.LikesCount < cur.LikesCount:
			t.Errorf("likes out of order at %d", i)
		case prev.LikesCount == cur.LikesCount && prev.ViewsCount < cur.ViewsCount:
			t.Errorf("views out of order at %d", i)
		case prev.LikesCount == cur.LikesCount && prev.ViewsCount == cur.ViewsCount && prev.ID > cur.ID:
			t.Errorf("id tie-break out of order at %d", i)
		}
	}
}

func TestPostCreateNumbersDuplicateSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	posts := NewPostStore(f.db)

	title := "Same Title " + f.suffix
	var slugs []string
	for range 3 {
		p := models.Post{Title: title, Content: "x", UserID: f.user.ID, CategoryID: f.category.ID}
		if err := posts.Create(ctx, &p); err != nil {
			t.Fatalf("Create: %v", err)
		}
		slugs = append(slugs, p.Slug)
	}
	base := slug.Generate(title)
	want := []string{base, base + "-2", base + "-3"}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slug %d: got %q, want %q", i, slugs[i], want[i])
		}
	}

	explicit := models.Post{Title: "Other " + f.suffix, Slug: base, Content: "x", UserID: f.user.ID, CategoryID: f.category.ID}
	if err := posts.Create(ctx, &explicit); !errors.Is(err, ErrConflict) {
		t.Errorf("explicit duplicate slug: got %v, want ErrConflict", err)
	}
}

func TestPostLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	posts := NewPostStore(f.db)

	p := models.Post{Title: "Lifecycle " + f.suffix, Content: "x", UserID: f.user.ID, CategoryID: f.category.ID}
	if err := posts.Create(ctx, &p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != models.PostStatusDraft || p.Slug == "" {
		t.Errorf("new post: status %q slug %q", p.Status, p.Slug)
	}

	published, err := posts.Transition(ctx, p.ID, models.PostStatusPublished)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.PublishedAt == nil {
		t.Error("publishing must set published_at")
	}
	if _, err := posts.Transition(ctx, p.ID, models.PostStatusDraft); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("published to draft: got %v, want ErrInvalidTransition", err)
	}
	archived, err := posts.Transition(ctx, p.ID, models.PostStatusArchived)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.PublishedAt == nil || !archived.PublishedAt.Equal(*published.PublishedAt) {
		t.Error("archiving must keep published_at")
	}
	if _, err := posts.Transition(ctx, -1, models.PostStatusArchived); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing post: got %v, want ErrNotFound", err)
	}

	dup := models.Post{Title: "Dup", Slug: p.Slug, Content: "x", UserID: f.user.ID, CategoryID: f.category.ID}
	if err := posts.Create(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slug: got %v, want ErrConflict", err)
	}
}
