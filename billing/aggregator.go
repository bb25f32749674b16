package billing

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"overview_back/remotedb"
)

// AccountStripeView is the consolidated billing view for one account. Every
// section degrades independently: absent subscription, unreachable provider,
// or a failed individual call each leave the rest intact.
type AccountStripeView struct {
	Subscription   *remotedb.StripeSubscription `json:"subscription"`
	Customer       *CustomerView                `json:"customer"`
	PaymentMethods []PaymentMethodView          `json:"payment_methods"`
	Invoices       []InvoiceView                `json:"invoices"`
}

type customerResult struct {
	value *CustomerView
	err   error
}

type paymentMethodsResult struct {
	value []PaymentMethodView
	err   error
}

type invoicesResult struct {
	value []InvoiceView
	err   error
}

// Aggregate builds the billing view for the account. The three provider
// calls are dispatched concurrently and joined regardless of individual
// outcome; a failed call contributes an empty section and never cancels the
// others. No provider call is made when the account has no subscription
// record or when the client is disabled.
func (c *Client) Aggregate(ctx context.Context, db *gorm.DB, account *remotedb.Account) (*AccountStripeView, error) {
	view := &AccountStripeView{
		PaymentMethods: []PaymentMethodView{},
		Invoices:       []InvoiceView{},
	}

	sub, err := remotedb.FindSubscriptionByAccount(ctx, db, account.AccountUniqueID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return view, nil
	}
	view.Subscription = sub

	if !c.Enabled() {
		return view, nil
	}

	customerID := sub.StripeCustomerID

	var (
		wg       sync.WaitGroup
		customer customerResult
		methods  paymentMethodsResult
		invoices invoicesResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		customer.value, customer.err = c.FetchCustomer(ctx, customerID)
	}()
	go func() {
		defer wg.Done()
		methods.value, methods.err = c.ListCardPaymentMethods(ctx, customerID)
	}()
	go func() {
		defer wg.Done()
		invoices.value, invoices.err = c.ListRecentInvoices(ctx, customerID)
	}()
	wg.Wait()

	if customer.err != nil {
		c.log.Warn().Err(customer.err).Str("customer_id", customerID).Msg("customer fetch degraded")
	} else {
		view.Customer = customer.value
	}

	if methods.err != nil {
		c.log.Warn().Err(methods.err).Str("customer_id", customerID).Msg("payment method listing degraded")
	} else if methods.value != nil {
		view.PaymentMethods = methods.value
	}

	if invoices.err != nil {
		c.log.Warn().Err(invoices.err).Str("customer_id", customerID).Msg("invoice listing degraded")
	} else if invoices.value != nil {
		view.Invoices = invoices.value
	}

	return view, nil
}
