package auth

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

var testUser = UserClaims{ID: "u-1", Email: "ada@example.com", AccountType: "student"}

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func newTestJWT(now *time.Time) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", TokenIssuer: "coursemarket"}).WithClock(fixedClock(now))
}

func TestJWT_RoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWT(&now)

	token, issued, err := svc.GenerateToken(testUser)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID())
	assert.Equal(t, now.Add(DefaultTokenLifetime), issued.ExpiresAt.Time.UTC())

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.User)
	assert.Equal(t, issued.TokenID(), claims.TokenID())
	assert.Equal(t, DefaultTokenLifetime, claims.Remaining(now))
}

func TestJWT_ExpiresAfterFiveDays(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWT(&now)

	token, _, err := svc.GenerateToken(testUser)
	require.NoError(t, err)

	now = now.Add(DefaultTokenLifetime - time.Second)
	_, err = svc.ValidateToken(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWT_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWT(&now)
	valid, _, err := svc.GenerateToken(testUser)
	require.NoError(t, err)

	other, _, err := svc.GenerateToken(UserClaims{ID: "u-2", Email: "eve@example.com", AccountType: "teacher"})
	require.NoError(t, err)
	vp, op := strings.Split(valid, "."), strings.Split(other, ".")
	tampered := vp[0] + "." + op[1] + "." + vp[2]

	otherKey, _, err := NewJWTService(JWTConfig{SecretKey: "other", TokenIssuer: "coursemarket"}).
		WithClock(fixedClock(&now)).GenerateToken(testUser)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		User: testUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			Issuer:    "coursemarket",
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "a.b.c"},
		{name: "tampered payload", token: tampered},
		{name: "wrong key", token: otherKey},
		{name: "wrong algorithm", token: hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	tok, err = ExtractBearerToken("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	for _, h := range []string{"", "Bearer ", "Basic dXNlcjpwYXNz", "Bearer abc"} {
		_, err := ExtractBearerToken(h)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid, h)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
	assert.False(t, CheckPassword("not-a-hash", "secret1"))

	long := strings.Repeat("a", MaxPasswordBytes)
	hash, err = HashPassword(long)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, long))
	assert.False(t, CheckPassword(hash, long+"x"))
	assert.False(t, CheckPassword(hash, long+"anything"))
}

func TestGenerateResetCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestMemoryDenyList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dl := NewMemoryDenyList().WithClock(fixedClock(&now))

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Hour)
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-2", 0))
	revoked, err = dl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisDenyList(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dl := NewRedisDenyList(client)

	require.NoError(t, dl.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("denylist:jti-1"))

	mr.FastForward(2 * time.Minute)
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
