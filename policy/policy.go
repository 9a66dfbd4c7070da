// Package policy is the single place that decides whether a caller may
// perform an action. Decide is pure: callers load the resource first so a
// missing resource is reported as not found before ownership is compared.
package policy

import (
	"storefront/identity"
	"storefront/models"
)

type Action int

const (
	// ReadPublicCatalog covers product and category reads.
	ReadPublicCatalog Action = iota
	// ReadOwnOrSelf covers profile reads and reads of one's own orders or user record.
	ReadOwnOrSelf
	// WriteOwnOrSelf covers writes on one's own behalf: reviews, profile, orders.
	WriteOwnOrSelf
	// AdminOnly covers catalog and user management and listing everything.
	AdminOnly
)

func (a Action) String() string {
	switch a {
	case ReadPublicCatalog:
		return "ReadPublicCatalog"
	case ReadOwnOrSelf:
		return "ReadOwnOrSelf"
	case WriteOwnOrSelf:
		return "WriteOwnOrSelf"
	case AdminOnly:
		return "AdminOnly"
	}
	return "Unknown"
}

type Decision struct {
	Allowed bool
	// Reason is models.ErrUnauthorized or models.ErrForbidden on deny.
	Reason error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason error) Decision { return Decision{Reason: reason} }

// Err returns nil when allowed, otherwise an error carrying the deny reason.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == models.ErrUnauthorized {
		return models.Unauthorized("authentication required")
	}
	return models.Forbidden("forbidden")
}

func Decide(who identity.Identity, action Action, ownerId string) Decision {
	switch action {
	case ReadPublicCatalog:
		return allow()
	case ReadOwnOrSelf:
		if who.IsAdmin() || isOwner(who, ownerId) {
			return allow()
		}
		return deny(models.ErrForbidden)
	case WriteOwnOrSelf:
		if !who.Authenticated() {
			return deny(models.ErrUnauthorized)
		}
		if who.IsAdmin() || isOwner(who, ownerId) {
			return allow()
		}
		return deny(models.ErrForbidden)
	case AdminOnly:
		if who.IsAdmin() {
			return allow()
		}
		if !who.Authenticated() {
			return deny(models.ErrUnauthorized)
		}
		return deny(models.ErrForbidden)
	}
	return deny(models.ErrForbidden)
}

// Check is Decide followed by Err.
func Check(who identity.Identity, action Action, ownerId string) error {
	return Decide(who, action, ownerId).Err()
}

func isOwner(who identity.Identity, ownerId string) bool {
	return who.Authenticated() && ownerId != "" && who.ID == ownerId
}

// Authenticated rejects anonymous callers for operations that are scoped to
// the caller and therefore have no owner to compare against yet.
func Authenticated(who identity.Identity) error {
	if !who.Authenticated() {
		return models.Unauthorized("authentication required")
	}
	return nil
}
