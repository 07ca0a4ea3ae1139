// Package routes defines HTTP route constants for the application.
package routes

const (
	// Webhook endpoints
	WebhookGhost = "/webhook/ghost"

	// Operational endpoints
	Health = "/health"
)
