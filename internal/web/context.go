package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/insightdesk/internal/core"
)

// clientContext tags the request context with the caller's address and user
// agent for audit records. RemoteAddr has already passed TrustedRealIP.
func clientContext(r *http.Request) context.Context {
	return core.WithClient(r.Context(), clientAddr(r), r.Header.Get("User-Agent"))
}
