package remotedb

import (
	"time"

	"gorm.io/datatypes"
)

// The types below mirror tables owned by the customer-support application.
// They are read-only here: nothing in this codebase migrates or writes them.

// Account is an organization in the remote dataset.
type Account struct {
	ID                  int      `gorm:"column:id;primaryKey" json:"id"`
	AccountOrganisation string   `gorm:"column:account_organisation" json:"account_organisation"`
	AccountUniqueID     string   `gorm:"column:account_unique_id" json:"account_unique_id"`
	RelevanceScore      *float64 `gorm:"column:relevance_score" json:"relevance_score"`
	KValue              *int     `gorm:"column:k_value" json:"k_value"`
	SourcesReturned     *int     `gorm:"column:sources_returned" json:"sources_returned"`
	Temperature         *float64 `gorm:"column:temperature" json:"temperature"`
	ChunkSize           *int     `gorm:"column:chunk_size" json:"chunk_size"`
	ChunkOverlap        *int     `gorm:"column:chunk_overlap" json:"chunk_overlap"`
	WebhookURL          *string  `gorm:"column:webhook_url" json:"webhook_url"`
	OptInWebhookURL     *string  `gorm:"column:opt_in_webhook_url" json:"opt_in_webhook_url"`
}

func (Account) TableName() string { return "account" }

// ChatSession is one visitor conversation.
type ChatSession struct {
	ID                               int        `gorm:"column:id;primaryKey" json:"id"`
	AccountUniqueID                  string     `gorm:"column:account_unique_id" json:"account_unique_id"`
	VisitorUUID                      string     `gorm:"column:visitor_uuid" json:"visitor_uuid"`
	StartTime                        time.Time  `gorm:"column:start_time" json:"start_time"`
	EndTime                          *time.Time `gorm:"column:end_time" json:"end_time"`
	VisitorName                      *string    `gorm:"column:visitor_name" json:"visitor_name"`
	VisitorEmail                     *string    `gorm:"column:visitor_email" json:"visitor_email"`
	InitialQuerySentiment            *string    `gorm:"column:initial_query_sentiment" json:"initial_query_sentiment"`
	InitialQuerySentimentExplanation *string    `gorm:"column:initial_query_sentiment_explanation" json:"initial_query_sentiment_explanation"`
	ConversationSentiment            *string    `gorm:"column:conversation_sentiment" json:"conversation_sentiment"`
	ConversationSentimentExplanation *string    `gorm:"column:conversation_sentiment_explanation" json:"conversation_sentiment_explanation"`
}

func (ChatSession) TableName() string { return "chatsession" }

// ChatMessage is a single turn belonging to exactly one session.
type ChatMessage struct {
	MessageID     string         `gorm:"column:message_id;primaryKey" json:"message_id"`
	ChatSessionID int            `gorm:"column:chat_session_id" json:"chat_session_id"`
	SenderType    string         `gorm:"column:sender_type" json:"sender_type"`
	MessageText   string         `gorm:"column:message_text" json:"message_text"`
	Timestamp     time.Time      `gorm:"column:timestamp" json:"timestamp"`
	SourceFiles   datatypes.JSON `gorm:"column:source_files" json:"source_files"`
}

func (ChatMessage) TableName() string { return "chatmessage" }

// StripeSubscription links an account to its billing-provider subscription,
// with cached status and period fields. The provider remains the source of
// truth for everything but the id mapping.
type StripeSubscription struct {
	ID                   int        `gorm:"column:id;primaryKey" json:"-"`
	AccountUniqueID      string     `gorm:"column:account_unique_id" json:"-"`
	StripeSubscriptionID string     `gorm:"column:stripe_subscription_id" json:"stripe_subscription_id"`
	StripeCustomerID     string     `gorm:"column:stripe_customer_id" json:"stripe_customer_id"`
	Status               *string    `gorm:"column:status" json:"status"`
	CurrentPeriodEnd     *time.Time `gorm:"column:current_period_end" json:"current_period_end"`
	Type                 *string    `gorm:"column:type" json:"type"`
	TrialStart           *time.Time `gorm:"column:trial_start" json:"trial_start"`
	TrialEnd             *time.Time `gorm:"column:trial_end" json:"trial_end"`
	SubscriptionStart    *time.Time `gorm:"column:subscription_start" json:"subscription_start"`
	StripeAccountURL     *string    `gorm:"column:stripe_account_url" json:"stripe_account_url"`
	RelatedProductTitle  *string    `gorm:"column:related_product_title" json:"related_product_title"`
}

func (StripeSubscription) TableName() string { return "stripesubscription" }
