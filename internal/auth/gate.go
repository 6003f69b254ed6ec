// Package auth holds the single shared credential that gates a stream.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"

	"golang.org/x/crypto/blake2b"

	"deskstream/internal/constants"
)

// Gate owns the one credential that is live at any time. Issuing a new
// credential invalidates the previous one.
type Gate struct {
	mu      sync.RWMutex
	current string
	random  io.Reader
}

func NewGate() *Gate {
	return &Gate{random: rand.Reader}
}

// Issue generates a fresh 256-bit credential, stores it and returns it in
// URL query encoding, ready to embed in a share link.
func (g *Gate) Issue() (string, error) {
	raw := make([]byte, constants.CredentialBytes)
	if _, err := io.ReadFull(g.random, raw); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(raw)

	g.mu.Lock()
	g.current = key
	g.mu.Unlock()

	return url.QueryEscape(key), nil
}

// Validate reports whether candidate, as it appeared in a request URL,
// decodes to the live credential.
//
// The comparison is plain string equality and so is not constant time.
func (g *Gate) Validate(candidate string) bool {
	decoded, err := url.QueryUnescape(candidate)
	if err != nil || decoded == "" {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current != "" && decoded == g.current
}

// Revoke drops the live credential so every candidate is rejected until the
// next Issue.
func (g *Gate) Revoke() {
	g.mu.Lock()
	g.current = ""
	g.mu.Unlock()
}

// Fingerprint identifies the live credential in logs without revealing it.
func (g *Gate) Fingerprint() string {
	g.mu.RLock()
	key := g.current
	g.mu.RUnlock()
	if key == "" {
		return ""
	}
	return Fingerprint(key)
}

func Fingerprint(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:constants.FingerprintSize])
}
