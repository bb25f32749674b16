package remotedb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// AnalyticsWindowDays is the trailing reporting window applied to every
// analytics query.
const AnalyticsWindowDays = 30

// cutoff is computed at query time, not cached per request.
func cutoff() time.Time {
	return time.Now().UTC().AddDate(0, 0, -AnalyticsWindowDays)
}

// SentimentCount is one row of a sentiment breakdown. A nil sentiment means
// the session's opening query was never classified.
type SentimentCount struct {
	Sentiment *string `json:"sentiment"`
	Count     int64   `json:"count"`
}

// ListAccounts returns all accounts ordered by organisation name.
func ListAccounts(ctx context.Context, db *gorm.DB) ([]Account, error) {
	var accounts []Account
	err := db.WithContext(ctx).Order("account_organisation").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAccountByUniqueID resolves an account by its stable external id.
func FindAccountByUniqueID(ctx context.Context, db *gorm.DB, uniqueID string) (*Account, error) {
	var account Account
	result := db.WithContext(ctx).Where("account_unique_id = ?", uniqueID).First(&account)
	if result.Error != nil {
		return nil, result.Error
	}
	return &account, nil
}

// FindSubscriptionByAccount returns the account's subscription record, or
// (nil, nil) when the account has none.
func FindSubscriptionByAccount(ctx context.Context, db *gorm.DB, accountUniqueID string) (*StripeSubscription, error) {
	var sub StripeSubscription
	result := db.WithContext(ctx).Where("account_unique_id = ?", accountUniqueID).First(&sub)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &sub, nil
}

// SessionCount counts chat sessions started inside the window. An empty
// accountUniqueID means all accounts.
func SessionCount(ctx context.Context, db *gorm.DB, accountUniqueID string) (int64, error) {
	query := db.WithContext(ctx).
		Model(&ChatSession{}).
		Where("start_time >= ?", cutoff())
	if accountUniqueID != "" {
		query = query.Where("account_unique_id = ?", accountUniqueID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MessageCount counts chat messages sent inside the window, optionally
// scoped to one account via the owning session.
func MessageCount(ctx context.Context, db *gorm.DB, accountUniqueID string) (int64, error) {
	query := db.WithContext(ctx).
		Model(&ChatMessage{}).
		Where("chatmessage.timestamp >= ?", cutoff())
	if accountUniqueID != "" {
		query = query.
			Joins("JOIN chatsession ON chatsession.id = chatmessage.chat_session_id").
			Where("chatsession.account_unique_id = ?", accountUniqueID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MessagesBySentiment groups window messages by the owning session's initial
// query sentiment, most frequent first.
func MessagesBySentiment(ctx context.Context, db *gorm.DB, accountUniqueID string) ([]SentimentCount, error) {
	query := db.WithContext(ctx).
		Model(&ChatMessage{}).
		Select("chatsession.initial_query_sentiment AS sentiment, COUNT(chatmessage.message_id) AS count").
		Joins("JOIN chatsession ON chatsession.id = chatmessage.chat_session_id").
		Where("chatmessage.timestamp >= ?", cutoff())
	if accountUniqueID != "" {
		query = query.Where("chatsession.account_unique_id = ?", accountUniqueID)
	}

	var rows []SentimentCount
	err := query.
		Group("chatsession.initial_query_sentiment").
		Order("COUNT(chatmessage.message_id) DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []SentimentCount{}
	}
	return rows, nil
}
