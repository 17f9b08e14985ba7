package domain

import "time"

// VerificationRecord is the audit-trail row persisted after a verification
// request. It captures the verdict, never the payload itself.
type VerificationRecord struct {
	ID             string
	Signer         string
	Mode           string
	Algorithm      string
	Outcome        string
	FailedStep     string
	Message        string
	SignatureValid bool
	TransparencyOK *bool
	CreatedAt      time.Time
}
