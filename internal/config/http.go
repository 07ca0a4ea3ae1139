package config

const (
	HCType       = "Content-Type"
	HUserAgent   = "User-Agent"
	HLink        = "Link"
	HLocation    = "Location"
	HIdempotency = "Idempotency-Key"

	// Ghost-style webhook headers
	HGhostEvent     = "X-Ghost-Event"
	HGhostSignature = "X-Ghost-Signature"

	CTypeJSON = "application/json"
	CTypeHTML = "text/html"
	CTypeForm = "application/x-www-form-urlencoded"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)
