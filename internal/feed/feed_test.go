package feed

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/database"
	"sociogram/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	author      uint
	music, news *models.Tag
	oldie       *models.Post // music, rated +2, oldest
	middle      *models.Post // music+news, rated -1
	fresh       *models.Post // untagged, unrated, newest
}

func seedFeed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	author := models.User{Nickname: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := db.Create(&author).Error; err != nil {
		t.Fatalf("create author: %v", err)
	}
	music := &models.Tag{Name: "music"}
	news := &models.Tag{Name: "news"}
	if err := db.Create(music).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := db.Create(news).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	makePost := func(title string, at time.Time, tags ...*models.Tag) *models.Post {
		p := models.Post{UserID: author.ID, Title: title, Content: "body", Tags: tags}
		p.CreatedAt = at
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("create post %s: %v", title, err)
		}
		return &p
	}

	f := fixture{
		author: author.ID,
		music:  music,
		news:   news,
		oldie:  makePost("oldie", base, music),
		middle: makePost("middle", base.Add(time.Hour), music, news),
		fresh:  makePost("fresh", base.Add(2*time.Hour)),
	}

	rate := func(postID uint, value int) {
		voter := models.User{Nickname: fmt.Sprintf("voter%d-%d", postID, value),
			Email: uuid.NewString() + "@example.com", PasswordHash: "x"}
		if err := db.Create(&voter).Error; err != nil {
			t.Fatalf("create voter: %v", err)
		}
		if err := db.Create(&models.PostRate{PostID: postID, UserID: voter.ID, Value: value}).Error; err != nil {
			t.Fatalf("rate post %d: %v", postID, err)
		}
	}
	rate(f.oldie.ID, 1)
	rate(f.oldie.ID, 1)
	rate(f.middle.ID, -1)

	return f
}

func titles(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestPostsDefaultNewestFirst(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)

	posts, err := Posts(db, Query{})
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	got := titles(posts)
	want := []string{"fresh", "middle", "oldie"}
	if len(got) != len(want) {
		t.Fatalf("post count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPostsDateAscending(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)

	posts, err := Posts(db, Query{SortBy: SortByDate, Order: "asc"})
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	got := titles(posts)
	if len(got) != 3 || got[0] != "oldie" || got[2] != "fresh" {
		t.Fatalf("order = %v, want oldest first", got)
	}
}

func TestPostsSortByRating(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db)

	posts, err := Posts(db, Query{SortBy: SortByRating, Order: "desc"})
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	got := titles(posts)
	// +2, then 0, then -1.
	want := []string{"oldie", "fresh", "middle"}
	if len(got) != len(want) {
		t.Fatalf("post count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPostsTagFilterDeduplicates(t *testing.T) {
	db := newTestDB(t)
	f := seedFeed(t, db)

	posts, err := Posts(db, Query{TagIDs: []uint{f.music.ID, f.news.ID}})
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != 2 {
		// middle carries both matching tags but must appear once.
		t.Fatalf("filtered posts = %v, want 2 distinct", titles(posts))
	}
	for _, p := range posts {
		if p.Title == "fresh" {
			t.Fatal("untagged post leaked into tag-filtered feed")
		}
		if len(p.Tags) == 0 {
			t.Fatalf("tags not preloaded on %s", p.Title)
		}
	}
}

func TestPostsRejectsUnknownSort(t *testing.T) {
	db := newTestDB(t)

	if _, err := Posts(db, Query{SortBy: "popularity"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown sort: got %v, want validation error", err)
	}
	if _, err := Posts(db, Query{Order: "sideways"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown order: got %v, want validation error", err)
	}
}
