package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckTokenRejectsReplay(t *testing.T) {
	s := NewStore()
	ok, _ := s.checkToken("alice", "1700000000:42")
	require.True(t, ok)

	ok, reason := s.checkToken("alice", "1700000000:42")
	require.False(t, ok)
	require.Equal(t, "This is a replay", reason)
}

func TestCheckTokenAllowsSameTokenDifferentUsers(t *testing.T) {
	s := NewStore()
	ok, _ := s.checkToken("alice", "1700000000:42")
	require.True(t, ok)

	ok, _ = s.checkToken("bob", "1700000000:42")
	require.True(t, ok)
}

func TestCheckTokenRejectsStaleToken(t *testing.T) {
	s := NewStore()
	now := time.Unix(1700001000, 0)
	s.Now = func() time.Time { return now }

	ok, reason := s.checkToken("alice", "1700000000:1") // 1000s old, beyond the 5-minute window
	require.False(t, ok)
	require.Equal(t, "Token is stale", reason)
}

func TestCheckTokenAcceptsFreshToken(t *testing.T) {
	s := NewStore()
	now := time.Unix(1700000100, 0)
	s.Now = func() time.Time { return now }

	ok, _ := s.checkToken("alice", "1700000090:1") // 10s old, within the window
	require.True(t, ok)
}

func TestCheckTokenFreshnessDisabledWhenZero(t *testing.T) {
	s := NewStore()
	s.FreshnessWindow = 0
	s.Now = func() time.Time { return time.Unix(1700099999, 0) }

	ok, _ := s.checkToken("alice", "1700000000:1")
	require.True(t, ok)
}
