package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

const resetTokenBytes = 32

// ResetTokenStoreInterface defines the interface for reset token operations.
type ResetTokenStoreInterface interface {
	Issue(userID uint) (string, error)
	Redeem(token string) (userID uint, ok bool)
}

// ResetTokenStore maps single-use password reset tokens to user IDs in
// process memory. Tokens do not survive a restart and carry no expiry;
// the one guarantee is that each token redeems at most once, even under
// concurrent redemption.
type ResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]uint
}

// Ensure ResetTokenStore implements ResetTokenStoreInterface
var _ ResetTokenStoreInterface = (*ResetTokenStore)(nil)

// NewResetTokenStore creates an empty store.
func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{tokens: make(map[string]uint)}
}

// Issue generates a random token and binds it to userID.
func (s *ResetTokenStore) Issue(userID uint) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()

	return token, nil
}

// Redeem consumes a token. Lookup and deletion happen under one lock so
// two concurrent redemptions of the same token cannot both succeed.
func (s *ResetTokenStore) Redeem(token string) (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.tokens[token]
	if !ok {
		return 0, false
	}
	delete(s.tokens, token)
	return userID, true
}
