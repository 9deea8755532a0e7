package middleware

import (
	"testing"
	"time"
)

func TestUserRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewUserRateLimiter(3, time.Minute)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow("user-1") {
		t.Error("request over the limit should be rejected")
	}
}

func TestUserRateLimiter_IsolatesKeys(t *testing.T) {
	rl := NewUserRateLimiter(1, time.Minute)
	defer rl.Stop()

	if !rl.Allow("user-1") {
		t.Fatal("first request for user-1 should be allowed")
	}
	if !rl.Allow("user-2") {
		t.Error("user-2 should not share user-1's window")
	}
	if rl.Allow("user-1") {
		t.Error("second request for user-1 should be rejected")
	}
}

func TestUserRateLimiter_WindowResets(t *testing.T) {
	rl := NewUserRateLimiter(1, 10*time.Millisecond)
	defer rl.Stop()

	if !rl.Allow("user-1") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("user-1") {
		t.Fatal("second request inside the window should be rejected")
	}

	time.Sleep(15 * time.Millisecond)

	if !rl.Allow("user-1") {
		t.Error("request after the window elapsed should be allowed")
	}
}
