package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "a@x.com", want: "a@x.com", ok: true},
		{in: "  Alice.Smith@Example.ORG ", want: "alice.smith@example.org", ok: true},
		{in: "first-last@mail.co.uk", want: "first-last@mail.co.uk", ok: true},
		{in: "", ok: false},
		{in: "no-at-sign", ok: false},
		{in: "a@b", ok: false},
		{in: "a b@x.com", ok: false},
	}

	for _, tc := range tests {
		got, ok := NormalizeEmail(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestAccountTokenLifecycle(t *testing.T) {
	acc := &Account{Email: "a@x.com"}
	assert.False(t, acc.HasAccessToken())
	assert.False(t, acc.HasRefreshToken())

	exp := time.Now().Add(time.Hour)
	acc.AssignAccessToken("access", exp)
	acc.AssignRefreshToken("refresh", exp)
	assert.True(t, acc.HasAccessToken())
	assert.True(t, acc.HasRefreshToken())
	assert.Equal(t, "refresh", *acc.RefreshToken)

	acc.AssignRefreshToken("refresh-2", exp)
	assert.Equal(t, "refresh-2", *acc.RefreshToken)

	acc.ClearTokens()
	assert.False(t, acc.HasAccessToken())
	assert.False(t, acc.HasRefreshToken())
	assert.Nil(t, acc.AccessTokenExpiresAt)
	assert.Nil(t, acc.RefreshTokenExpiresAt)
}
