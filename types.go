package lumio

import (
	"github.com/lumioedu/lumio-go/api"
)

// UserIdentity is the authenticated principal cached by the session manager.
// Other components only read it through the Client's accessors.
type UserIdentity = api.UserIdentity

// TokenPair carries the access/refresh credential pair.
type TokenPair = api.TokenPair

// RegisterInput is the account-creation payload for [Client.Register].
type RegisterInput = api.RegisterInput

// BadgeAward records a badge granted for a scored quiz attempt.
type BadgeAward = api.BadgeAward
