package core

import (
	bls "github.com/herumi/bls-eth-go-binary/bls"
	"github.com/google/uuid"
)

// nopLogger discards every call; used wherever a test needs a Logger but
// doesn't care about its output.
type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// newTestReplicas wires a Replicas against a fresh single-replica section
// rooted at dir, with an in-memory routing overlay.
func newTestReplicas(dir string, self NodeID) (*Replicas, *ReplicaInfo, *MemoryRouting) {
	signing, info := NewTestSigningService()
	routing := NewMemoryRouting(self)
	r := NewReplicas(dir, info, signing, routing, self, nopLogger{})
	return r, info, routing
}

// signOwnedDebit signs a debit with secret, the same key that names
// from's WalletID (the owner-signature scheme).
func signOwnedDebit(secret *bls.SecretKey, from, to WalletID, amount Money, version uint64) SignedDebit {
	d := SignedDebit{From: from, To: to, Amount: amount, Version: version}
	d.Sig = SignShare(secret, debitSigningBytes(d))
	return d
}

// signOwnedCredit signs a credit with secret, the matching owner key for
// from's WalletID.
func signOwnedCredit(secret *bls.SecretKey, from, to WalletID, amount Money, creditID uuid.UUID) SignedCredit {
	c := SignedCredit{From: from, To: to, Amount: amount, CreditID: creditID}
	c.Sig = SignShare(secret, creditSigningBytes(c))
	return c
}
