package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authkeeper/internal/server/config"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Audience:      "user",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}
}

// movableClock позволяет сдвигать время между подписью и проверкой
type movableClock struct {
	now time.Time
}

func (m *movableClock) Now() time.Time { return m.now }

func newTestCodec(t *testing.T) (*Codec, *movableClock) {
	t.Helper()
	mc := &movableClock{now: testNow}
	c, err := New(testConfig(), mc.Now)
	require.NoError(t, err)
	return c, mc
}

func TestNew_RequiresSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = ""
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t)

	signed, err := c.SignAccess("session-1", "user-1")
	require.NoError(t, err)

	claims, ok := c.Verify(signed, Access)
	require.True(t, ok)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, jwt.ClaimStrings{"user"}, claims.Audience)
	assert.Equal(t, testNow.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, testNow.Unix(), claims.IssuedAt.Unix())
}

func TestCodec_RefreshRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t)

	signed, err := c.SignRefresh("session-1")
	require.NoError(t, err)

	claims, ok := c.Verify(signed, Refresh)
	require.True(t, ok)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Empty(t, claims.UserID)
	assert.Equal(t, testNow.Add(30*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestCodec_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		class   Class
		advance time.Duration
		valid   bool
	}{
		{name: "access before expiry", class: Access, advance: 14 * time.Minute, valid: true},
		{name: "access after expiry", class: Access, advance: 16 * time.Minute, valid: false},
		{name: "refresh before expiry", class: Refresh, advance: 29 * 24 * time.Hour, valid: true},
		{name: "refresh after expiry", class: Refresh, advance: 31 * 24 * time.Hour, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mc := newTestCodec(t)

			var signed string
			var err error
			if tt.class == Access {
				signed, err = c.SignAccess("s", "u")
			} else {
				signed, err = c.SignRefresh("s")
			}
			require.NoError(t, err)

			mc.now = testNow.Add(tt.advance)
			claims, ok := c.Verify(signed, tt.class)
			assert.Equal(t, tt.valid, ok)
			if !tt.valid {
				assert.Nil(t, claims)
			}
		})
	}
}

func TestCodec_ClassesDoNotCross(t *testing.T) {
	c, _ := newTestCodec(t)

	access, err := c.SignAccess("s", "u")
	require.NoError(t, err)
	refresh, err := c.SignRefresh("s")
	require.NoError(t, err)

	_, ok := c.Verify(access, Refresh)
	assert.False(t, ok, "access token must not pass as refresh")

	_, ok = c.Verify(refresh, Access)
	assert.False(t, ok, "refresh token must not pass as access")
}

func TestCodec_VerifyRejects(t *testing.T) {
	c, _ := newTestCodec(t)
	valid, err := c.SignAccess("s", "u")
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.AccessSecret = "another-secret"
	other, err := New(otherCfg, func() time.Time { return testNow })
	require.NoError(t, err)
	foreign, err := other.SignAccess("s", "u")
	require.NoError(t, err)

	audCfg := testConfig()
	audCfg.Audience = "admin"
	audCodec, err := New(audCfg, func() time.Time { return testNow })
	require.NoError(t, err)
	wrongAud, err := audCodec.SignAccess("s", "u")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "s"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "truncated", token: valid[:len(valid)-4]},
		{name: "wrong secret", token: foreign},
		{name: "wrong audience", token: wrongAud},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := c.Verify(tt.token, Access)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestCodec_TTL(t *testing.T) {
	c, _ := newTestCodec(t)
	assert.Equal(t, 15*time.Minute, c.TTL(Access))
	assert.Equal(t, 30*24*time.Hour, c.TTL(Refresh))
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "access", Access.String())
	assert.Equal(t, "refresh", Refresh.String())
	assert.Equal(t, "class(7)", Class(7).String())
}
