package data

import (
	"encoding/json"
	"fmt"
)

// IdentityScope is either the guest scope or an authenticated account. The
// zero value is the guest scope.
type IdentityScope struct {
	userId string
}

func Guest() IdentityScope {
	return IdentityScope{}
}

func Authenticated(userId string) IdentityScope {
	return IdentityScope{userId: userId}
}

func (s IdentityScope) IsGuest() bool {
	return s.userId == ""
}

func (s IdentityScope) UserId() string {
	return s.userId
}

func (s IdentityScope) String() string {
	if s.IsGuest() {
		return "guest"
	}
	return "auth:" + s.userId
}

type scopeJSON struct {
	UserId string `json:"userId,omitempty"`
}

func (s IdentityScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(scopeJSON{UserId: s.userId})
}

func (s *IdentityScope) UnmarshalJSON(b []byte) error {
	var raw scopeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.userId = raw.UserId
	return nil
}

// ResolveKey maps a scope onto its storage key. It depends on nothing but its
// arguments, so callers resolve per call instead of caching the result.
func ResolveKey(baseKey string, scope IdentityScope) string {
	if scope.IsGuest() {
		return fmt.Sprintf("%s_guest", baseKey)
	}
	return fmt.Sprintf("%s_auth_%s", baseKey, scope.userId)
}
