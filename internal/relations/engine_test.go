package relations

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/database"
	"sociogram/backend/internal/models"
	"sociogram/backend/internal/outbox"

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

func createUser(t *testing.T, db *gorm.DB, nickname string) uint {
	t.Helper()

	user := models.User{
		Nickname:     nickname,
		Email:        nickname + "@example.com",
		PasswordHash: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return user.ID
}

// assertState checks that exactly the expected status kind holds from the
// viewer's side.
func assertState(t *testing.T, e *Engine, viewer, target uint, want StatusKind) {
	t.Helper()

	st, err := e.Status(viewer, target)
	if err != nil {
		t.Fatalf("status(%d,%d): %v", viewer, target, err)
	}
	if st.Kind != want {
		t.Fatalf("status(%d,%d) = %s, want %s", viewer, target, st.Kind, want)
	}
}

func TestSendRequestLifecycle(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	st, err := e.SendRequest(alice, bob)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if st.Kind != StatusOfferSent {
		t.Fatalf("sender status = %s, want %s", st.Kind, StatusOfferSent)
	}
	assertState(t, e, bob, alice, StatusSubscriber)

	// Sending again is stale, not an error page.
	_, err = e.SendRequest(alice, bob)
	stale, ok := IsStale(err)
	if !ok {
		t.Fatalf("duplicate send: got %v, want stale", err)
	}
	if stale.Status.Kind != StatusOfferSent {
		t.Fatalf("stale status = %s, want %s", stale.Status.Kind, StatusOfferSent)
	}

	// The reverse direction is also stale: bob should accept instead.
	_, err = e.SendRequest(bob, alice)
	if _, ok := IsStale(err); !ok {
		t.Fatalf("reverse send: got %v, want stale", err)
	}
}

func TestAcceptResolvesOfferIntoFriendship(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send request: %v", err)
	}
	st, err := e.Accept(bob, alice)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if st.Kind != StatusFriends {
		t.Fatalf("acceptor status = %s, want %s", st.Kind, StatusFriends)
	}
	assertState(t, e, alice, bob, StatusFriends)

	var offers int64
	db.Model(&models.FriendshipOffer{}).Count(&offers)
	if offers != 0 {
		t.Fatalf("offers remaining after accept: %d", offers)
	}

	// Accepting a second time races against nothing; it is stale.
	if _, err := e.Accept(bob, alice); err == nil {
		t.Fatal("second accept succeeded, want stale")
	} else if _, ok := IsStale(err); !ok {
		t.Fatalf("second accept: got %v, want stale", err)
	}
}

func TestUnfriendLeavesReversedAnsweredOffer(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := e.Accept(bob, alice); err != nil {
		t.Fatalf("accept: %v", err)
	}

	st, err := e.Unfriend(alice, bob)
	if err != nil {
		t.Fatalf("unfriend: %v", err)
	}
	// The removed party keeps an already-answered outgoing request, so the
	// actor sees them as an answered subscriber.
	if st.Kind != StatusSubscriber || !st.Answered {
		t.Fatalf("actor status = %+v, want answered subscriber", st)
	}
	bobSt, err := e.Status(bob, alice)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if bobSt.Kind != StatusOfferSent || !bobSt.Answered {
		t.Fatalf("removed party status = %+v, want answered offer_sent", bobSt)
	}

	// accept -> unfriend -> reverse send never yields two offers.
	if _, err := e.SendRequest(alice, bob); err == nil {
		t.Fatal("reverse send after unfriend succeeded, want stale")
	}
	var offers int64
	db.Model(&models.FriendshipOffer{}).Count(&offers)
	if offers != 1 {
		t.Fatalf("offers between pair = %d, want 1", offers)
	}

	// Re-accepting the leftover offer restores the friendship.
	if _, err := e.Accept(alice, bob); err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	assertState(t, e, alice, bob, StatusFriends)
}

func TestCancelVersusAcceptRace(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// Accept commits first; the late cancel observes friends.
	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := e.Accept(bob, alice); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err := e.CancelRequest(alice, bob)
	stale, ok := IsStale(err)
	if !ok {
		t.Fatalf("late cancel: got %v, want stale", err)
	}
	if stale.Status.Kind != StatusFriends {
		t.Fatalf("late cancel resync = %s, want %s", stale.Status.Kind, StatusFriends)
	}

	// And the other ordering: cancel commits first, accept loses.
	if _, err := e.Unfriend(alice, bob); err != nil {
		t.Fatalf("unfriend: %v", err)
	}
	if _, err := e.CancelRequest(bob, alice); err != nil {
		t.Fatalf("cancel leftover offer: %v", err)
	}
	_, err = e.Accept(alice, bob)
	stale, ok = IsStale(err)
	if !ok {
		t.Fatalf("late accept: got %v, want stale", err)
	}
	if stale.Status.Kind != StatusStranger {
		t.Fatalf("late accept resync = %s, want %s", stale.Status.Kind, StatusStranger)
	}
}

func TestMutualExclusionAtEveryStep(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// Exactly one of the four pair states holds at every observation point.
	countStates := func() int {
		var offers, friends int64
		db.Model(&models.FriendshipOffer{}).Count(&offers)
		db.Model(&models.Friend{}).Count(&friends)
		if friends > 0 && offers > 0 {
			t.Fatal("offer and friendship coexist")
		}
		return int(offers + friends)
	}

	if n := countStates(); n != 0 {
		t.Fatalf("edges before any action: %d", n)
	}
	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n := countStates(); n != 1 {
		t.Fatalf("edges after send: %d", n)
	}
	if _, err := e.Accept(bob, alice); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if n := countStates(); n != 1 {
		t.Fatalf("edges after accept: %d", n)
	}
	if _, err := e.Unfriend(bob, alice); err != nil {
		t.Fatalf("unfriend: %v", err)
	}
	if n := countStates(); n != 1 {
		t.Fatalf("edges after unfriend: %d", n)
	}
	if _, err := e.CancelRequest(alice, bob); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n := countStates(); n != 0 {
		t.Fatalf("edges after cancel: %d", n)
	}
}

func TestMarkSeen(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send: %v", err)
	}

	pending, err := e.PendingCount(bob)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	if _, err := e.MarkSeen(bob, alice); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	st, err := e.Status(bob, alice)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Kind != StatusSubscriber || !st.Answered {
		t.Fatalf("status after mark seen = %+v, want answered subscriber", st)
	}

	pending, err = e.PendingCount(bob)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending after mark seen = %d, want 0", pending)
	}

	// A second dismissal has nothing left to answer.
	if _, err := e.MarkSeen(bob, alice); err == nil {
		t.Fatal("second mark seen succeeded, want stale")
	} else if _, ok := IsStale(err); !ok {
		t.Fatalf("second mark seen: got %v, want stale", err)
	}
}

func TestSelfPairRejectedAtCreation(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")

	for name, op := range map[string]func() (Status, error){
		"send":     func() (Status, error) { return e.SendRequest(alice, alice) },
		"cancel":   func() (Status, error) { return e.CancelRequest(alice, alice) },
		"accept":   func() (Status, error) { return e.Accept(alice, alice) },
		"unfriend": func() (Status, error) { return e.Unfriend(alice, alice) },
		"seen":     func() (Status, error) { return e.MarkSeen(alice, alice) },
	} {
		if _, err := op(); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s with self: got %v, want validation error", name, err)
		}
	}
}

func TestCorruptedRowIsFatal(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")

	// A self-referential row can only appear through corruption; reading it
	// back must abort instead of silently continuing.
	if err := db.Create(&models.Friend{User1ID: alice, User2ID: alice}).Error; err != nil {
		t.Fatalf("seed corrupted row: %v", err)
	}
	if _, err := e.Friends(alice); !errors.Is(err, apperr.ErrDataIntegrity) {
		t.Fatalf("friends over corrupted row: got %v, want data integrity", err)
	}
}

func TestNotificationClearThenAdd(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send alice: %v", err)
	}
	if _, err := e.SendRequest(carol, bob); err != nil {
		t.Fatalf("send carol: %v", err)
	}

	// Two requests, but only the latest friendship_update survives: stale
	// unanswered-offer notifications are cleared before re-enqueueing.
	var rows int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND kind = ?", bob, outbox.KindFriendshipUpdate).
		Count(&rows)
	if rows != 1 {
		t.Fatalf("friendship_update rows = %d, want 1", rows)
	}

	got, err := outbox.PollSince(db, bob, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("polled %d notifications, want 1", len(got))
	}

	update := mustDecodeUpdate(t, got[0].Payload)
	if update.ActorID != carol {
		t.Fatalf("actor = %d, want %d", update.ActorID, carol)
	}
	if update.PendingRequests != 2 {
		t.Fatalf("pending = %d, want 2", update.PendingRequests)
	}
	if update.Status.Kind != StatusSubscriber {
		t.Fatalf("payload status = %s, want %s", update.Status.Kind, StatusSubscriber)
	}
}

func mustDecodeUpdate(t *testing.T, payload string) FriendshipUpdate {
	t.Helper()

	var update FriendshipUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		t.Fatalf("decode friendship update: %v", err)
	}
	return update
}

func TestCancelNotifiesOnlyWhileUnanswered(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	if _, err := e.SendRequest(alice, bob); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := e.MarkSeen(bob, alice); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if _, err := outbox.PollSince(db, bob, 0); err != nil {
		t.Fatalf("drain: %v", err)
	}

	// Cancelling an already-answered offer disappears silently.
	if _, err := e.CancelRequest(alice, bob); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := outbox.PollSince(db, bob, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("polled %d notifications after silent cancel, want 0", len(got))
	}
}

func TestListsAndCounts(t *testing.T) {
	db := newTestDB(t)
	e := New(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	dave := createUser(t, db, "dave")

	// bob is alice's friend, carol subscribes to alice, alice offers to dave.
	if _, err := e.SendRequest(bob, alice); err != nil {
		t.Fatalf("send bob: %v", err)
	}
	if _, err := e.Accept(alice, bob); err != nil {
		t.Fatalf("accept bob: %v", err)
	}
	if _, err := e.SendRequest(carol, alice); err != nil {
		t.Fatalf("send carol: %v", err)
	}
	if _, err := e.SendRequest(alice, dave); err != nil {
		t.Fatalf("send dave: %v", err)
	}

	friends, err := e.Friends(alice)
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != bob {
		t.Fatalf("friends = %v, want [bob]", friends)
	}

	subs, err := e.Subscribers(alice)
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].User.ID != carol || subs[0].Answered {
		t.Fatalf("subscribers = %+v, want unanswered carol", subs)
	}

	outgoing, err := e.Outgoing(alice)
	if err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].ID != dave {
		t.Fatalf("outgoing = %v, want [dave]", outgoing)
	}

	counts, err := e.CountsFor(alice)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Friends != 1 || counts.Subscribers != 1 || counts.Offers != 1 {
		t.Fatalf("counts = %+v, want 1/1/1", counts)
	}
}
