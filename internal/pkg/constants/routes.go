package constants

// Static route constants
const (
	APIRoute       = "/api"
	WebsocketRoute = "/ws"
	DocsRoute      = "/docs/api/"
	MetricsRoute   = "/metrics"
)
