package identity

import (
	"context"
	"net/http"
	"strings"

	"storefront/logger"
	"storefront/models"
)

const SessionCookie = "sessionId"

type SessionLookup interface {
	GetUserSessionInfo(ctx context.Context, sessionId string) (userId string, role models.Role, exists bool, err error)
}

type Resolver struct {
	sessions SessionLookup
	tokens   *TokenIssuer
	log      *logger.Logger
}

// NewResolver accepts a nil session lookup, in which case only bearer
// tokens are honoured.
func NewResolver(sessions SessionLookup, tokens *TokenIssuer, log *logger.Logger) *Resolver {
	return &Resolver{sessions: sessions, tokens: tokens, log: log.With("component", "identity")}
}

func (r *Resolver) Resolve(req *http.Request) Identity {
	if h := req.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		id, err := r.tokens.Parse(h[7:])
		if err != nil {
			r.log.Debug("bearer token rejected", "error", err)
			return Anonymous()
		}
		return id
	}

	c, err := req.Cookie(SessionCookie)
	if err != nil || c.Value == "" || r.sessions == nil {
		return Anonymous()
	}
	userId, role, exists, err := r.sessions.GetUserSessionInfo(req.Context(), c.Value)
	if err != nil {
		r.log.Error("session lookup failed", "error", err)
		return Anonymous()
	}
	if !exists {
		return Anonymous()
	}
	return New(userId, role)
}
