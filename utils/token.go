package utils

import (
	"context"
	"sync"
	"time"
)

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.Mutex
)

// BlacklistToken revokes a token until it would have expired anyway.
func BlacklistToken(token string) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	blacklistedTokens[token] = time.Now().Add(TokenTTL)
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	expiry, exists := blacklistedTokens[token]
	if !exists {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}
	delete(blacklistedTokens, token)
	return false
}

// RunBlacklistCleanup drops expired entries every interval until ctx ends.
func RunBlacklistCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			blacklistMutex.Lock()
			for token, expiry := range blacklistedTokens {
				if now.After(expiry) {
					delete(blacklistedTokens, token)
				}
			}
			blacklistMutex.Unlock()
		}
	}
}
