package relations

import (
	"errors"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"

	"gorm.io/gorm"
)

// StatusKind is the relationship between a viewer and a target as the viewer
// sees it. Exactly one kind applies to any pair at any observation point.
type StatusKind string

const (
	// StatusFriends - an undirected Friend edge exists.
	StatusFriends StatusKind = "friends"
	// StatusSubscriber - the target has an unresolved offer to the viewer.
	StatusSubscriber StatusKind = "subscriber"
	// StatusOfferSent - the viewer has an unresolved offer to the target.
	StatusOfferSent StatusKind = "offer_sent"
	// StatusStranger - no edge in either direction.
	StatusStranger StatusKind = "stranger"
)

// Status is the UI-facing relationship view for a (viewer, target) pair.
type Status struct {
	Kind StatusKind `json:"kind"`
	// Answered carries the offer's answered flag for the subscriber and
	// offer_sent kinds; a subscriber with Answered=false still awaits a
	// dismiss-or-accept decision from the viewer.
	Answered bool `json:"answered,omitempty"`
}

// StaleStateError reports that a precondition failed because the other party
// changed the relationship concurrently. It carries the freshly recomputed
// status so the acting user's view can resync instead of seeing an error.
type StaleStateError struct {
	Status Status
	reason string
}

func (e *StaleStateError) Error() string {
	return "relationship state changed: " + e.reason
}

// IsStale reports whether err is a StaleStateError and returns it.
func IsStale(err error) (*StaleStateError, bool) {
	var stale *StaleStateError
	if errors.As(err, &stale) {
		return stale, true
	}
	return nil, false
}

// Subscriber is a user who has an offer pending towards someone, together
// with whether that offer has already been answered (left pending).
type Subscriber struct {
	User     models.User
	Answered bool
}

// Counts summarizes a user's relationship edges for profile pages.
type Counts struct {
	Friends     int64 `json:"friends"`
	Subscribers int64 `json:"subscribers"`
	Offers      int64 `json:"offers"`
}

// Status computes which relationship kind applies for (viewer, target):
// Friend edge first, then incoming offer, then outgoing offer, else stranger.
// First match wins; the kinds are mutually exclusive by invariant.
func (e *Engine) Status(viewerID, targetID uint) (Status, error) {
	return status(e.db, viewerID, targetID)
}

func status(db *gorm.DB, viewerID, targetID uint) (Status, error) {
	friend, err := friendBetween(db, viewerID, targetID)
	if err != nil {
		return Status{}, err
	}
	if friend != nil {
		return Status{Kind: StatusFriends}, nil
	}

	incoming, err := offerBetween(db, targetID, viewerID)
	if err != nil {
		return Status{}, err
	}
	if incoming != nil {
		return Status{Kind: StatusSubscriber, Answered: incoming.Answered}, nil
	}

	outgoing, err := offerBetween(db, viewerID, targetID)
	if err != nil {
		return Status{}, err
	}
	if outgoing != nil {
		return Status{Kind: StatusOfferSent, Answered: outgoing.Answered}, nil
	}

	return Status{Kind: StatusStranger}, nil
}

// friendBetween returns the Friend row for an unordered pair, or nil.
func friendBetween(db *gorm.DB, a, b uint) (*models.Friend, error) {
	var friend models.Friend
	err := db.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		a, b, b, a).First(&friend).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if friend.User1ID == friend.User2ID {
		return nil, apperr.ErrDataIntegrity
	}
	return &friend, nil
}

// offerBetween returns the directed offer row from -> to, or nil.
func offerBetween(db *gorm.DB, fromID, toID uint) (*models.FriendshipOffer, error) {
	var offer models.FriendshipOffer
	err := db.Where("from_user_id = ? AND to_user_id = ?", fromID, toID).First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if offer.FromUserID == offer.ToUserID {
		return nil, apperr.ErrDataIntegrity
	}
	return &offer, nil
}
