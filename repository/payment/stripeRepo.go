package paymentrepo

import (
	"errors"

	"rentloop/util/httpx"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type CreateIntentReq struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
}

type CreateIntentResp struct {
	IntentID     string
	ClientSecret string
}

type Repo interface {
	CreatePaymentIntent(req CreateIntentReq) (*CreateIntentResp, error)
}

type stripeRepo struct {
	api *client.API
}

func NewStripe(apiKey string) Repo {
	api := &client.API{}
	api.Init(apiKey, &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient: httpx.Client(),
		}),
	})
	return &stripeRepo{api: api}
}

func (r *stripeRepo) CreatePaymentIntent(req CreateIntentReq) (*CreateIntentResp, error) {
	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	// Stripe amounts are integer cents.
	cents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	if cents <= 0 {
		return nil, errors.New("amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(cents),
		Currency:    stripe.String(currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	pi, err := r.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return &CreateIntentResp{IntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
