package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"overview_back/authorization"
	"overview_back/billing"
	"overview_back/remotedb"
)

type staticPool struct {
	db *gorm.DB
}

func (p *staticPool) Current() *gorm.DB { return p.db }

var dbSeq atomic.Int64

func newRemoteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:accounts%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&remotedb.Account{},
		&remotedb.ChatSession{},
		&remotedb.ChatMessage{},
		&remotedb.StripeSubscription{},
	))
	return db
}

func newAccountsRouter(t *testing.T, db *gorm.DB, billingClient *billing.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("LOCAL_DB_URL", filepath.Join(t.TempDir(), "local.db"))
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "secret")

	router := gin.New()
	authModule, err := authorization.RegisterRoutes(router)
	require.NoError(t, err)

	if billingClient == nil {
		t.Setenv("STRIPE_SECRET_KEY", "")
		billingClient = billing.NewClientFromEnv()
	}
	RegisterRoutes(router, authModule.Guard(), &staticPool{db: db}, billingClient)
	return router
}

func request(t *testing.T, router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(nil))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()
	payload, err := json.Marshal(gin.H{"email": "admin@example.com", "password": "secret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.AccessToken
}

func seedAccount(t *testing.T, db *gorm.DB, organisation, uid string) {
	t.Helper()
	require.NoError(t, db.Create(&remotedb.Account{
		AccountOrganisation: organisation,
		AccountUniqueID:     uid,
	}).Error)
}

func seedSession(t *testing.T, db *gorm.DB, accountUID string, start time.Time, sentiment *string) int {
	t.Helper()
	session := remotedb.ChatSession{
		AccountUniqueID:       accountUID,
		VisitorUUID:           fmt.Sprintf("visitor-%d", dbSeq.Add(1)),
		StartTime:             start,
		InitialQuerySentiment: sentiment,
	}
	require.NoError(t, db.Create(&session).Error)
	return session.ID
}

func seedMessage(t *testing.T, db *gorm.DB, sessionID int, ts time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&remotedb.ChatMessage{
		MessageID:     fmt.Sprintf("msg-%d", dbSeq.Add(1)),
		ChatSessionID: sessionID,
		SenderType:    "visitor",
		MessageText:   "hello",
		Timestamp:     ts,
	}).Error)
}

func strptr(s string) *string { return &s }

func TestAccountsRequireAuth(t *testing.T) {
	router := newAccountsRouter(t, newRemoteDB(t), nil)
	rec := request(t, router, http.MethodGet, "/accounts/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountsUnavailableWithoutPool(t *testing.T) {
	router := newAccountsRouter(t, nil, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/", token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Remote database not configured")
}

func TestListAccountsOrderedWithTotal(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Zenith Ltd", "acc-z")
	seedAccount(t, db, "Acme Corp", "acc-a")
	seedAccount(t, db, "Meridian", "acc-m")

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Accounts []remotedb.Account `json:"accounts"`
		Total    int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Total)
	assert.Equal(t, "Acme Corp", body.Accounts[0].AccountOrganisation)
	assert.Equal(t, "Meridian", body.Accounts[1].AccountOrganisation)
	assert.Equal(t, "Zenith Ltd", body.Accounts[2].AccountOrganisation)
}

func TestUnknownAccountIs404BeforeCounting(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	for _, path := range []string{
		"/accounts/no-such/sessions/count",
		"/accounts/no-such/messages/count",
		"/accounts/no-such/messages/by-sentiment",
		"/accounts/no-such/stripe",
	} {
		rec := request(t, router, http.MethodGet, path, token)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Account not found", path)
	}
}

func TestScopedSessionCount(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")
	seedAccount(t, db, "Meridian", "acc-m")
	now := time.Now().UTC()
	seedSession(t, db, "acc-a", now.AddDate(0, 0, -1), nil)
	seedSession(t, db, "acc-a", now.AddDate(0, 0, -40), nil)
	seedSession(t, db, "acc-m", now.AddDate(0, 0, -1), nil)

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/acc-a/sessions/count", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Count      int64 `json:"count"`
		PeriodDays int   `json:"period_days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Count)
	assert.Equal(t, 30, body.PeriodDays)
}

func TestScopedMessageCountJoinsOwningSession(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")
	seedAccount(t, db, "Meridian", "acc-m")
	now := time.Now().UTC()
	ours := seedSession(t, db, "acc-a", now.AddDate(0, 0, -5), nil)
	theirs := seedSession(t, db, "acc-m", now.AddDate(0, 0, -5), nil)
	seedMessage(t, db, ours, now.AddDate(0, 0, -2))
	seedMessage(t, db, ours, now.AddDate(0, 0, -40))
	seedMessage(t, db, theirs, now.AddDate(0, 0, -2))

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/acc-a/messages/count", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Count)
}

func TestScopedSentimentBreakdown(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")
	now := time.Now().UTC()
	positive := seedSession(t, db, "acc-a", now.AddDate(0, 0, -3), strptr("positive"))
	seedMessage(t, db, positive, now.AddDate(0, 0, -2))
	seedMessage(t, db, positive, now.AddDate(0, 0, -2))

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/acc-a/messages/by-sentiment", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Sentiments []remotedb.SentimentCount `json:"sentiments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sentiments, 1)
	require.NotNil(t, body.Sentiments[0].Sentiment)
	assert.Equal(t, "positive", *body.Sentiments[0].Sentiment)
	assert.EqualValues(t, 2, body.Sentiments[0].Count)
}

func TestStripeViewWithoutSubscription(t *testing.T) {
	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")

	router := newAccountsRouter(t, db, nil)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/acc-a/stripe", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Subscription   *remotedb.StripeSubscription `json:"subscription"`
		Customer       *billing.CustomerView        `json:"customer"`
		PaymentMethods []billing.PaymentMethodView  `json:"payment_methods"`
		Invoices       []billing.InvoiceView        `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Subscription)
	assert.Nil(t, body.Customer)
	assert.Empty(t, body.PaymentMethods)
	assert.Empty(t, body.Invoices)
}

func TestStripeViewEndToEnd(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/customers/cus_42":
			fmt.Fprint(w, `{"id":"cus_42","email":"billing@acme.test","name":"Acme Corp","created":1700000000}`)
		case r.URL.Path == "/v1/payment_methods":
			fmt.Fprint(w, `{"data":[{"id":"pm_1","type":"card","card":{"brand":"visa","last4":"4242","exp_month":11,"exp_year":2027}}]}`)
		case r.URL.Path == "/v1/invoices":
			fmt.Fprint(w, `{"data":[{"id":"in_1","amount_paid":4900,"currency":"usd","status":"paid","created":1700003600}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_API_BASE", provider.URL)
	billingClient := billing.NewClientFromEnv()

	db := newRemoteDB(t)
	seedAccount(t, db, "Acme Corp", "acc-a")
	status := "active"
	require.NoError(t, db.Create(&remotedb.StripeSubscription{
		AccountUniqueID:      "acc-a",
		StripeSubscriptionID: "sub_42",
		StripeCustomerID:     "cus_42",
		Status:               &status,
	}).Error)

	router := newAccountsRouter(t, db, billingClient)
	token := login(t, router)

	rec := request(t, router, http.MethodGet, "/accounts/acc-a/stripe", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Subscription *remotedb.StripeSubscription `json:"subscription"`
		Customer     *billing.CustomerView        `json:"customer"`
		Methods      []billing.PaymentMethodView  `json:"payment_methods"`
		Invoices     []billing.InvoiceView        `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Subscription)
	assert.Equal(t, "sub_42", body.Subscription.StripeSubscriptionID)
	require.NotNil(t, body.Customer)
	assert.Equal(t, "cus_42", body.Customer.ID)
	require.Len(t, body.Methods, 1)
	assert.Equal(t, "4242", body.Methods[0].Last4)
	require.Len(t, body.Invoices, 1)
	assert.EqualValues(t, 4900, body.Invoices[0].AmountPaid)
}
