package relations

import (
	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"
)

// Friends returns every user the given user shares a Friend edge with.
func (e *Engine) Friends(userID uint) ([]models.User, error) {
	var edges []models.Friend
	if err := e.db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Preload("User1").Preload("User2").
		Find(&edges).Error; err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(edges))
	for _, edge := range edges {
		if edge.User1ID == edge.User2ID {
			return nil, apperr.ErrDataIntegrity
		}
		if edge.User1ID == userID {
			users = append(users, edge.User2)
		} else {
			users = append(users, edge.User1)
		}
	}
	return users, nil
}

// Subscribers returns the users with an unresolved offer towards userID,
// each with whether the offer was already answered (left pending).
func (e *Engine) Subscribers(userID uint) ([]Subscriber, error) {
	var offers []models.FriendshipOffer
	if err := e.db.Where("to_user_id = ?", userID).
		Preload("FromUser").
		Find(&offers).Error; err != nil {
		return nil, err
	}

	subs := make([]Subscriber, 0, len(offers))
	for _, offer := range offers {
		if offer.FromUserID == offer.ToUserID {
			return nil, apperr.ErrDataIntegrity
		}
		subs = append(subs, Subscriber{User: offer.FromUser, Answered: offer.Answered})
	}
	return subs, nil
}

// Outgoing returns the users userID has sent an unresolved offer to.
func (e *Engine) Outgoing(userID uint) ([]models.User, error) {
	var offers []models.FriendshipOffer
	if err := e.db.Where("from_user_id = ?", userID).
		Preload("ToUser").
		Find(&offers).Error; err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(offers))
	for _, offer := range offers {
		if offer.FromUserID == offer.ToUserID {
			return nil, apperr.ErrDataIntegrity
		}
		users = append(users, offer.ToUser)
	}
	return users, nil
}

// CountsFor summarizes a user's edges for profile pages.
func (e *Engine) CountsFor(userID uint) (Counts, error) {
	var c Counts
	if err := e.db.Model(&models.Friend{}).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Count(&c.Friends).Error; err != nil {
		return Counts{}, err
	}
	if err := e.db.Model(&models.FriendshipOffer{}).
		Where("to_user_id = ?", userID).
		Count(&c.Subscribers).Error; err != nil {
		return Counts{}, err
	}
	if err := e.db.Model(&models.FriendshipOffer{}).
		Where("from_user_id = ?", userID).
		Count(&c.Offers).Error; err != nil {
		return Counts{}, err
	}
	return c, nil
}

// PendingCount returns the number of unanswered incoming offers, i.e. the
// badge count of requests still awaiting a decision.
func (e *Engine) PendingCount(userID uint) (int64, error) {
	return pendingCount(e.db, userID)
}
