// Package relations implements the friendship state machine.
//
// Every mutating action runs inside a single transaction that re-validates
// its precondition before writing. Because two users can race (one cancels
// while the other accepts), a failed precondition is not fatal: the engine
// recomputes the acting user's current status and returns it wrapped in a
// StaleStateError, so the caller resyncs instead of erroring out.
package relations

import (
	"errors"
	"fmt"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"
	"sociogram/backend/internal/outbox"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Engine mutates the friendship graph and enqueues the resulting
// notifications in the same transaction.
type Engine struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// FriendshipUpdate is the structured payload enqueued for the party affected
// by a relationship change. Rendering is the client's job.
type FriendshipUpdate struct {
	Kind    string `json:"kind"`
	ActorID uint   `json:"actor_id"`
	// PendingRequests is the recipient's count of unanswered incoming
	// offers after this change.
	PendingRequests int64  `json:"pending_requests"`
	Status          Status `json:"status"`
}

// Update kinds.
const (
	UpdateRequestReceived  = "request_received"
	UpdateRequestCancelled = "request_cancelled"
	UpdateRequestAccepted  = "request_accepted"
	UpdateUnfriended       = "unfriended"
)

// staleError marks a precondition failure inside a transaction. The public
// StaleStateError is built after rollback, once the fresh status is known.
type staleError struct{ reason string }

func (e staleError) Error() string { return e.reason }

// SendRequest creates a directed offer from -> to.
// Precondition: the pair is strangers. An existing reverse offer, forward
// offer or friendship makes the request stale.
func (e *Engine) SendRequest(fromID, toID uint) (Status, error) {
	if err := validatePair(fromID, toID); err != nil {
		return Status{}, err
	}

	op := func(tx *gorm.DB) error {
		st, err := status(tx, fromID, toID)
		if err != nil {
			return err
		}
		if st.Kind != StatusStranger {
			return staleError{reason: fmt.Sprintf("pair (%d,%d) is already %s", fromID, toID, st.Kind)}
		}

		offer := models.FriendshipOffer{FromUserID: fromID, ToUserID: toID}
		if err := tx.Create(&offer).Error; err != nil {
			return err
		}

		return e.notify(tx, toID, fromID, UpdateRequestReceived)
	}

	return e.run(fromID, toID, op)
}

// CancelRequest deletes the viewer's outgoing offer.
func (e *Engine) CancelRequest(fromID, toID uint) (Status, error) {
	if err := validatePair(fromID, toID); err != nil {
		return Status{}, err
	}

	op := func(tx *gorm.DB) error {
		offer, err := offerBetween(tx, fromID, toID)
		if err != nil {
			return err
		}
		if offer == nil {
			return staleError{reason: fmt.Sprintf("no offer from %d to %d", fromID, toID)}
		}

		wasUnanswered := !offer.Answered
		if err := tx.Delete(&models.FriendshipOffer{}, offer.ID).Error; err != nil {
			return err
		}

		// The target only cares if the request was still awaiting an
		// answer; a pre-answered offer disappears silently.
		if wasUnanswered {
			return e.notify(tx, toID, fromID, UpdateRequestCancelled)
		}
		return nil
	}

	return e.run(fromID, toID, op)
}

// Accept resolves the offer between actor and other (whichever direction it
// was sent in) into a friendship.
func (e *Engine) Accept(actorID, otherID uint) (Status, error) {
	if err := validatePair(actorID, otherID); err != nil {
		return Status{}, err
	}

	op := func(tx *gorm.DB) error {
		offer, err := offerEitherDirection(tx, actorID, otherID)
		if err != nil {
			return err
		}
		if offer == nil {
			return staleError{reason: fmt.Sprintf("no offer between %d and %d", actorID, otherID)}
		}
		if err := tx.Delete(&models.FriendshipOffer{}, offer.ID).Error; err != nil {
			return err
		}

		// Stale-card race: the pair may already be friends if both sides
		// accepted concurrently.
		friend, err := friendBetween(tx, actorID, otherID)
		if err != nil {
			return err
		}
		if friend != nil {
			return staleError{reason: fmt.Sprintf("pair (%d,%d) is already friends", actorID, otherID)}
		}

		if err := tx.Create(&models.Friend{User1ID: actorID, User2ID: otherID}).Error; err != nil {
			return err
		}

		return e.notify(tx, otherID, actorID, UpdateRequestAccepted)
	}

	return e.run(actorID, otherID, op)
}

// Unfriend deletes the friendship and leaves a reversed, pre-answered offer
// from the other party, so the removed side keeps the actor as an outgoing
// request and can be re-accepted without re-initiating cold.
func (e *Engine) Unfriend(actorID, otherID uint) (Status, error) {
	if err := validatePair(actorID, otherID); err != nil {
		return Status{}, err
	}

	op := func(tx *gorm.DB) error {
		friend, err := friendBetween(tx, actorID, otherID)
		if err != nil {
			return err
		}
		if friend == nil {
			return staleError{reason: fmt.Sprintf("pair (%d,%d) is not friends", actorID, otherID)}
		}
		if err := tx.Delete(&models.Friend{}, friend.ID).Error; err != nil {
			return err
		}

		// No need to check for an existing offer: the friendship excluded
		// one by the mutual-exclusion invariant.
		offer := models.FriendshipOffer{FromUserID: otherID, ToUserID: actorID, Answered: true}
		if err := tx.Create(&offer).Error; err != nil {
			return err
		}

		return e.notify(tx, otherID, actorID, UpdateUnfriended)
	}

	return e.run(actorID, otherID, op)
}

// MarkSeen dismisses an incoming pending offer: the sender stays a
// subscriber and stops being counted as awaiting an answer.
func (e *Engine) MarkSeen(actorID, fromID uint) (Status, error) {
	if err := validatePair(actorID, fromID); err != nil {
		return Status{}, err
	}

	op := func(tx *gorm.DB) error {
		offer, err := offerBetween(tx, fromID, actorID)
		if err != nil {
			return err
		}
		if offer == nil || offer.Answered {
			return staleError{reason: fmt.Sprintf("no unanswered offer from %d to %d", fromID, actorID)}
		}
		return tx.Model(&models.FriendshipOffer{}).
			Where("id = ?", offer.ID).
			Update("answered", true).Error
	}

	return e.run(actorID, fromID, op)
}

// run executes op in a transaction and translates a precondition failure
// into a StaleStateError carrying the recomputed (actor, other) status.
func (e *Engine) run(actorID, otherID uint, op func(tx *gorm.DB) error) (Status, error) {
	err := e.db.Transaction(op)
	if err == nil {
		return e.Status(actorID, otherID)
	}

	var stale staleError
	if errors.As(err, &stale) {
		log.Warn().
			Uint("actor", actorID).
			Uint("other", otherID).
			Str("reason", stale.reason).
			Msg("stale relationship request, resyncing")

		st, serr := e.Status(actorID, otherID)
		if serr != nil {
			return Status{}, serr
		}
		return Status{}, &StaleStateError{Status: st, reason: stale.reason}
	}

	return Status{}, err
}

// notify enqueues a FriendshipUpdate for recipientID describing actorID's
// action, inside the mutating transaction.
func (e *Engine) notify(tx *gorm.DB, recipientID, actorID uint, kind string) error {
	pending, err := pendingCount(tx, recipientID)
	if err != nil {
		return err
	}
	st, err := status(tx, recipientID, actorID)
	if err != nil {
		return err
	}

	_, err = outbox.Enqueue(tx, recipientID, outbox.KindFriendshipUpdate, FriendshipUpdate{
		Kind:            kind,
		ActorID:         actorID,
		PendingRequests: pending,
		Status:          st,
	})
	return err
}

func validatePair(a, b uint) error {
	if a == b {
		return fmt.Errorf("%w: self-referential relationship for user %d", apperr.ErrValidation, a)
	}
	return nil
}

// offerEitherDirection finds the single unresolved offer between a pair,
// whichever way it was sent.
func offerEitherDirection(tx *gorm.DB, a, b uint) (*models.FriendshipOffer, error) {
	offer, err := offerBetween(tx, a, b)
	if err != nil || offer != nil {
		return offer, err
	}
	return offerBetween(tx, b, a)
}

func pendingCount(tx *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.FriendshipOffer{}).
		Where("to_user_id = ? AND answered = ?", userID, false).
		Count(&n).Error
	return n, err
}
