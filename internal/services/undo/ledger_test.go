package undo

import "testing"

func TestRedeemIsSingleUse(t *testing.T) {
	l := NewLedger()
	token := l.Issue("u1")

	if _, ok := l.Redeem("wrong"); ok {
		t.Fatal("mismatched token must not redeem")
	}
	user, ok := l.Redeem(token)
	if !ok || user != "u1" {
		t.Fatalf("Redeem = %q, %v", user, ok)
	}
	if _, ok := l.Redeem(token); ok {
		t.Fatal("token redeemed twice")
	}
}

func TestOnlyLatestTokenIsValid(t *testing.T) {
	l := NewLedger()
	first := l.Issue("u1")
	second := l.Issue("u2")
	if first == second {
		t.Fatal("tokens must differ")
	}

	if _, ok := l.Redeem(first); ok {
		t.Fatal("overwritten token must not redeem")
	}
	if user, ok := l.Redeem(second); !ok || user != "u2" {
		t.Fatalf("Redeem(second) = %q, %v", user, ok)
	}
}

func TestForgetClearsMatchingUserOnly(t *testing.T) {
	l := NewLedger()
	token := l.Issue("u1")

	if l.Forget("u2") {
		t.Fatal("Forget of another user must not clear the slot")
	}
	if _, ok := l.Peek(token); !ok {
		t.Fatal("token should still be pending")
	}
	if !l.Forget("u1") {
		t.Fatal("Forget should clear the pending entry")
	}
	if _, ok := l.Redeem(token); ok {
		t.Fatal("forgotten token must not redeem")
	}
	if _, ok := l.Pending(); ok {
		t.Fatal("ledger should be empty")
	}
}

func TestEmptyTokenNeverMatches(t *testing.T) {
	l := NewLedger()
	if _, ok := l.Redeem(""); ok {
		t.Fatal("empty ledger redeemed")
	}
	l.newToken = func() string { return "" }
	l.Issue("u1")
	if _, ok := l.Redeem(""); ok {
		t.Fatal("empty token redeemed")
	}
}
