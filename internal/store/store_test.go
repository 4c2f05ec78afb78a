// store_test.go provides the shared test database helper and fixtures for
// the store integration tests. Tests are skipped if PostgreSQL is not
// available.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"blogstats/internal/database"
	"blogstats/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogstats")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogstats")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// fixture owns one user, category and tag created for a single test, so
// filters on them isolate the test's rows from anything else in the database.
type fixture struct {
	db       *sql.DB
	suffix   string
	user     models.User
	category models.Category
	tag      models.Tag
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := &fixture{db: db, suffix: fmt.Sprintf("%d", time.Now().UnixNano())}

	f.user = models.User{Name: "Fixture Author " + f.suffix, Email: "author-" + f.suffix + "@example.com"}
	if err := NewUserStore(db).Create(ctx, &f.user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.category = models.Category{Name: "Fixture Category " + f.suffix, UserID: f.user.ID, IsActive: true}
	if err := NewCategoryStore(db).Create(ctx, &f.category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.tag = models.Tag{Name: "Fixture Tag " + f.suffix, UserID: f.user.ID, IsActive: true}
	if err := NewTagStore(db).Create(ctx, &f.tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM likes WHERE user_id = $1", f.user.ID)
		db.Exec("DELETE FROM posts WHERE category_id = $1", f.category.ID)
		db.Exec("DELETE FROM tags WHERE id = $1", f.tag.ID)
		db.Exec("DELETE FROM categories WHERE id = $1", f.category.ID)
		db.Exec("DELETE FROM users WHERE id = $1", f.user.ID)
	})
	return f
}

// post creates a published post in the fixture category. Counters are
// written directly so tests can set up rankings without fact rows.
func (f *fixture) post(t *testing.T, title string, likes, views int) models.Post {
	t.Helper()
	ctx := context.Background()
	posts := NewPostStore(f.db)

	p := models.Post{
		Title:      title,
		Slug:       fmt.Sprintf("%s-%s-%d", "fixture", f.suffix, time.Now().UnixNano()),
		Content:    "Body of " + title,
		UserID:     f.user.ID,
		CategoryID: f.category.ID,
	}
	if err := posts.Create(ctx, &p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	published, err := posts.Transition(ctx, p.ID, models.PostStatusPublished)
	if err != nil {
		t.Fatalf("publish post: %v", err)
	}
	if _, err := f.db.Exec(`UPDATE posts SET likes_count = $2, views_count = $3 WHERE id = $1`, p.ID, likes, views); err != nil {
		t.Fatalf("set counters: %v", err)
	}
	published.LikesCount, published.ViewsCount = likes, views
	return *published
}

func (f *fixture) comment(t *testing.T, postID int64, parentID *int64, approve bool) models.Comment {
	t.Helper()
	ctx := context.Background()
	comments := NewCommentStore(f.db)
	c := models.Comment{Content: "comment " + f.suffix, UserID: f.user.ID, PostID: postID, ParentID: parentID}
	if err := comments.Create(ctx, &c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if approve {
		if err := comments.Moderate(ctx, c.ID, models.CommentStatusApproved); err != nil {
			t.Fatalf("approve comment: %v", err)
		}
		c.Status = models.CommentStatusApproved
	}
	return c
}
