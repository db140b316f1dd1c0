package constants

// Context keys for validated requests
const (
	// Auth context keys
	ContextKeyLogin  = "login"
	ContextKeyClaims = "claims"

	// Domain context keys
	ContextKeyCreateDomain = "createDomain"
	ContextKeyUpdateDomain = "updateDomain"

	ContextKeyRequestID = "RequestID"
)
