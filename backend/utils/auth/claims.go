package auth

import (
	"net/http"
	"slices"
	"strings"

	"taskboard/backend/utils/apperrors"
)

// Headers the gateway sets after validating a bearer token. Services trust
// them and the gateway strips any inbound copies.
const (
	HeaderSub      = "X-Auth-Sub"
	HeaderUsername = "X-Auth-Username"
	HeaderGroups   = "X-Auth-Groups"
)

const (
	GroupAdmin  = "admin"
	GroupMember = "member"
)

// Identity is the caller as seen by a service: directory identifier,
// username and group memberships.
type Identity struct {
	Sub      string
	Username string
	Groups   []string
}

func (i Identity) InGroup(group string) bool {
	return slices.Contains(i.Groups, group)
}

func (i Identity) IsAdmin() bool {
	return i.InGroup(GroupAdmin)
}

// FromRequest reads the caller identity attached by the gateway.
func FromRequest(r *http.Request) (Identity, error) {
	id := Identity{
		Sub:      strings.TrimSpace(r.Header.Get(HeaderSub)),
		Username: strings.TrimSpace(r.Header.Get(HeaderUsername)),
		Groups:   splitGroups(r.Header.Get(HeaderGroups)),
	}
	if id.Sub == "" {
		return Identity{}, apperrors.Unauthorized("missing identity claims")
	}
	return id, nil
}

// Apply writes the identity onto outbound request headers.
func (i Identity) Apply(h http.Header) {
	h.Set(HeaderSub, i.Sub)
	h.Set(HeaderUsername, i.Username)
	h.Set(HeaderGroups, strings.Join(i.Groups, ","))
}

// StripHeaders removes identity headers a client may have forged.
func StripHeaders(h http.Header) {
	h.Del(HeaderSub)
	h.Del(HeaderUsername)
	h.Del(HeaderGroups)
}

func splitGroups(raw string) []string {
	var groups []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
