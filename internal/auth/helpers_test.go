package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-api/internal/clock"
)

var (
	keysOnce sync.Once
	testKeys *KeyPair
	keysErr  error
)

func sharedKeys(t *testing.T) *KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		testKeys, keysErr = GenerateKeyPair(2048)
	})
	require.NoError(t, keysErr)
	return testKeys
}

func newTestCodec(t *testing.T) (*TokenCodec, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewTokenCodec(sharedKeys(t), DefaultIssuer, clk), clk
}
