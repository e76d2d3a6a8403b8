package app

import "net/http"

type sessionKey string

const SessionKeyGuest = sessionKey("guest")

func (s sessionKey) String() string {
	return string(s)
}

// holderIdentity resolves who is claiming a seat. An explicit holder ID from
// the request wins; anonymous requests fall back to the session token so a
// browser keeps one identity across its claims.
func (app *Application) holderIdentity(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}

	return app.sessionManager.Token(r.Context())
}
