package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	ContextKey       = "USER_CONTEXT"
	KeyFromProtected = "from_protected"
	KeyIsAdmin       = "isAdmin"
)
