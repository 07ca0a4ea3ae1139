package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrInitializeStoreFmt    = "Failed to initialize webmention store: %v"

	// Webhook errors
	ErrSignatureRequired      = "Signature required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrStaleSignature         = "Signature timestamp too old"
	ErrInvalidPayload         = "Invalid webhook payload"
	ErrInternalServerError    = "Internal server error"

	// Config errors
	ErrLoadConfigFmt = "Failed to load config: %v"
)
