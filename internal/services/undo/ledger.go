package undo

import "github.com/google/uuid"

// Ledger keeps at most one pending undo for an NG user add.
// Each new add overwrites the slot, so only the latest add can be undone.
type Ledger struct {
	pending  *entry
	newToken func() string
}

type entry struct {
	token  string
	userID string
}

// NewLedger creates an empty ledger issuing random UUID tokens
func NewLedger() *Ledger {
	return &Ledger{newToken: uuid.NewString}
}

// Issue records a fresh token for userID, replacing any pending one
func (l *Ledger) Issue(userID string) string {
	token := l.newToken()
	l.pending = &entry{token: token, userID: userID}
	return token
}

// Peek returns the user the token would restore without consuming it
func (l *Ledger) Peek(token string) (string, bool) {
	if l.pending == nil || token == "" || l.pending.token != token {
		return "", false
	}
	return l.pending.userID, true
}

// Redeem consumes the pending entry if token matches exactly
func (l *Ledger) Redeem(token string) (string, bool) {
	userID, ok := l.Peek(token)
	if !ok {
		return "", false
	}
	l.pending = nil
	return userID, true
}

// Forget clears the pending entry when it belongs to userID.
// Used when the user is unblocked through another path.
func (l *Ledger) Forget(userID string) bool {
	if l.pending == nil || l.pending.userID != userID {
		return false
	}
	l.pending = nil
	return true
}

// Pending reports the user of the pending entry, if any
func (l *Ledger) Pending() (string, bool) {
	if l.pending == nil {
		return "", false
	}
	return l.pending.userID, true
}
