package outbox

import (
	"fmt"
	"testing"

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

func seedUser(t *testing.T, db *gorm.DB, nickname string) uint {
	t.Helper()

	user := models.User{Nickname: nickname, Email: nickname + "@example.com", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func TestEnqueueClearsSameKindFirst(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	if _, err := Enqueue(db, alice, KindUnreadMessages, map[string]int{"unread_dialogs": 1}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := Enqueue(db, alice, KindUnreadMessages, map[string]int{"unread_dialogs": 2}); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	// A different kind coexists.
	if _, err := Enqueue(db, alice, KindFriendshipUpdate, map[string]string{"kind": "request_received"}); err != nil {
		t.Fatalf("other kind enqueue: %v", err)
	}

	got, err := PollSince(db, alice, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("polled %d notifications, want 2", len(got))
	}
	for _, n := range got {
		if n.Kind == KindUnreadMessages && n.Payload != `{"unread_dialogs":2}` {
			t.Fatalf("stale payload survived: %s", n.Payload)
		}
	}
}

func TestPollSinceConsumesWhatItReturns(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	if _, err := Enqueue(db, alice, KindFriendshipUpdate, "a"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := PollSince(db, alice, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("first poll returned %d, want 1", len(got))
	}

	again, err := PollSince(db, alice, 0)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second poll returned %d, want 0", len(again))
	}
}

func TestPollSinceCursorIsStrict(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	older, err := Enqueue(db, alice, KindMessagesRead, "old")
	if err != nil {
		t.Fatalf("enqueue older: %v", err)
	}
	newer, err := Enqueue(db, alice, KindUnreadMessages, "new")
	if err != nil {
		t.Fatalf("enqueue newer: %v", err)
	}
	if newer.Timestamp <= older.Timestamp {
		// Clock granularity too coarse to distinguish the rows; nudge.
		if err := db.Model(&models.Notification{}).
			Where("id = ?", newer.ID).
			Update("timestamp", older.Timestamp+0.001).Error; err != nil {
			t.Fatalf("nudge timestamp: %v", err)
		}
		newer.Timestamp = older.Timestamp + 0.001
	}

	// A cursor equal to a row's timestamp must exclude that row.
	got, err := PollSince(db, alice, older.Timestamp)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 1 || got[0].ID != newer.ID {
		t.Fatalf("poll since %f returned %+v, want only the newer row", older.Timestamp, got)
	}

	// The older row was not consumed; a wider cursor still finds it.
	rest, err := PollSince(db, alice, 0)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != older.ID {
		t.Fatalf("leftover poll returned %+v, want only the older row", rest)
	}
}

func TestPollSinceOrdersAscending(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	kinds := []string{KindFriendshipUpdate, KindUnreadMessages, KindMessageAppended}
	for _, kind := range kinds {
		if _, err := Enqueue(db, alice, kind, kind); err != nil {
			t.Fatalf("enqueue %s: %v", kind, err)
		}
	}
	// Another user's queue is invisible to alice.
	if _, err := Enqueue(db, bob, KindMessagesRead, "x"); err != nil {
		t.Fatalf("enqueue bob: %v", err)
	}

	got, err := PollSince(db, alice, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != len(kinds) {
		t.Fatalf("polled %d notifications, want %d", len(got), len(kinds))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Timestamp < prev.Timestamp ||
			(cur.Timestamp == prev.Timestamp && cur.ID < prev.ID) {
			t.Fatalf("order violated at %d: %+v before %+v", i, prev, cur)
		}
	}
}
