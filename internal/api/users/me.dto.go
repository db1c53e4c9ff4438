package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Image         *string `json:"image"`
	EmailVerified bool    `json:"email_verified"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	CompletedPayments int        `json:"completed_payments"`
	PendingPayments   int        `json:"pending_payments"`
	LastPaidAt        *time.Time `json:"last_paid_at"`
}
