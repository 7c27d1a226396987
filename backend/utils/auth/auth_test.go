package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/backend/utils/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(HeaderSub, "sub-1")
	req.Header.Set(HeaderUsername, "alice")
	req.Header.Set(HeaderGroups, "member, admin,")

	id, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id.Sub)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, []string{"member", "admin"}, id.Groups)
	assert.True(t, id.IsAdmin())
	assert.True(t, id.InGroup(GroupMember))
}

func TestFromRequest_MissingSub(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(HeaderUsername, "alice")

	_, err := FromRequest(req)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestApplyAndStrip(t *testing.T) {
	h := http.Header{}
	Identity{Sub: "s", Username: "u", Groups: []string{"member"}}.Apply(h)
	assert.Equal(t, "member", h.Get(HeaderGroups))

	StripHeaders(h)
	assert.Empty(t, h.Get(HeaderSub))
	assert.Empty(t, h.Get(HeaderUsername))
	assert.Empty(t, h.Get(HeaderGroups))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)

	token, err := issuer.Issue(Identity{Sub: "sub-1", Username: "alice", Groups: []string{"admin"}})
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Sub: "sub-1", Username: "alice", Groups: []string{"admin"}}, claims.Identity())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	token, err := issuer.Issue(Identity{Sub: "sub-1", Username: "alice"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", time.Hour).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenIssuer("s3cret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
