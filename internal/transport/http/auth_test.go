package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorIdentify(t *testing.T) {
	valid, err := IssueToken("s3cret", "alice", "Alice", time.Minute)
	require.NoError(t, err)
	expired, err := IssueToken("s3cret", "alice", "Alice", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other", "alice", "Alice", time.Minute)
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]struct {
		secret string
		target string
		header string
		want   string
		err    error
	}{
		"dev mode query":       {target: "/ws?userId=bob&name=Bob", want: "bob"},
		"dev mode missing":     {target: "/ws", err: errMissingIdentity},
		"bearer header":        {secret: "s3cret", target: "/ws", header: "Bearer " + valid, want: "alice"},
		"token query":          {secret: "s3cret", target: "/ws?token=" + valid, want: "alice"},
		"query id ignored":     {secret: "s3cret", target: "/ws?userId=bob", err: errMissingIdentity},
		"malformed header":     {secret: "s3cret", target: "/ws", header: "Token " + valid, err: errInvalidToken},
		"expired token":        {secret: "s3cret", target: "/ws?token=" + expired, err: errInvalidToken},
		"wrong signing secret": {secret: "s3cret", target: "/ws?token=" + foreign, err: errInvalidToken},
		"unsigned token":       {secret: "s3cret", target: "/ws?token=" + unsigned, err: errInvalidToken},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := NewAuthenticator(tt.secret).Identify(r)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.PlayerID)
		})
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "alice", "", time.Minute)
	require.Error(t, err)
}
