package billing

import "time"

// Fulfillment is the input of the store's completion transaction.
type Fulfillment struct {
	EventID   string
	EventType string
	StripeID  string
	Amount    int64
	Currency  string
	At        time.Time
}

type FulfillResult struct {
	Payment Payment
	// Applied is false when the event id was already processed or the record
	// was already completed.
	Applied   bool
	Duplicate bool
}
