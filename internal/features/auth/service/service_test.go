package service

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const testBotToken = "7342037359:AAF0zF4PzPZs0aTfty8fXgoAeWPqTlT_test"

// signedPayload собирает query string в формате Telegram Mini Apps
// с валидной подписью под testBotToken.
func signedPayload(t *testing.T, params map[string]string, authDate time.Time) string {
	t.Helper()

	hash := initdata.Sign(params, testBotToken, authDate)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", hash)
	return values.Encode()
}

func userParams() map[string]string {
	return map[string]string{
		"query_id": "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":     `{"id":99281932,"first_name":"Андрей","username":"rogue","language_code":"ru"}`,
	}
}

func TestValidate_SignedPayload(t *testing.T) {
	svc := NewAuthService(testBotToken)

	claim, err := svc.Validate(signedPayload(t, userParams(), time.Now()))
	require.NoError(t, err)

	assert.True(t, claim.Verified)
	assert.Equal(t, int64(99281932), claim.ID)
	assert.Equal(t, "rogue", claim.Username)
	assert.Equal(t, "Андрей", claim.FirstName)
}

func TestValidate_TamperedPayload(t *testing.T) {
	svc := NewAuthService(testBotToken)

	payload := signedPayload(t, userParams(), time.Now())
	tampered := strings.Replace(payload, "99281932", "1", 1)

	claim, err := svc.Validate(tampered)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, claim)
}

func TestValidate_WrongToken(t *testing.T) {
	svc := NewAuthService("other-bot-token")

	claim, err := svc.Validate(signedPayload(t, userParams(), time.Now()))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, claim)
}

func TestValidate_MissingHash(t *testing.T) {
	svc := NewAuthService(testBotToken)

	values := url.Values{}
	values.Set("user", `{"id":99281932,"first_name":"Андрей"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	_, err := svc.Validate(values.Encode())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_EmptyPayload(t *testing.T) {
	svc := NewAuthService(testBotToken)

	_, err := svc.Validate("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_Expiry(t *testing.T) {
	svc := NewAuthService(testBotToken)

	// Подпись в пределах суток проходит
	fresh := signedPayload(t, userParams(), time.Now().Add(-23*time.Hour))
	_, err := svc.Validate(fresh)
	assert.NoError(t, err)

	// Старше суток — отклоняется, даже с валидной подписью
	stale := signedPayload(t, userParams(), time.Now().Add(-25*time.Hour))
	_, err = svc.Validate(stale)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_NoUserField(t *testing.T) {
	svc := NewAuthService(testBotToken)

	payload := signedPayload(t, map[string]string{"query_id": "AAHdF6IQAAAAAN0XohDhrOrc"}, time.Now())

	claim, err := svc.Validate(payload)
	require.NoError(t, err)
	assert.True(t, claim.Verified)
	assert.Zero(t, claim.ID)
}

func TestValidate_OpenMode(t *testing.T) {
	svc := NewAuthService("")
	assert.True(t, svc.OpenMode())

	// В open mode любой payload даёт пустую неаутентифицированную личность
	for _, payload := range []string{"", "garbage", signedPayload(t, userParams(), time.Now())} {
		claim, err := svc.Validate(payload)
		require.NoError(t, err)
		assert.False(t, claim.Verified)
		assert.Zero(t, claim.ID)
	}
}

func TestResolveID(t *testing.T) {
	tests := []struct {
		name     string
		claim    Claim
		declared int64
		want     int64
		wantErr  error
	}{
		{name: "open mode passes declared id", claim: Claim{}, declared: 42, want: 42},
		{name: "open mode passes zero", claim: Claim{}, declared: 0, want: 0},
		{name: "verified id wins over empty declared", claim: Claim{ID: 7, Verified: true}, declared: 0, want: 7},
		{name: "verified id matches declared", claim: Claim{ID: 7, Verified: true}, declared: 7, want: 7},
		{name: "mismatch is rejected", claim: Claim{ID: 7, Verified: true}, declared: 8, wantErr: ErrIdentityMismatch},
		{name: "verified without user passes declared", claim: Claim{Verified: true}, declared: 42, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.claim.ResolveID(tt.declared)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
