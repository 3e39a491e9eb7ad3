package core

import bls "github.com/herumi/bls-eth-go-binary/bls"

// NewTestSigningService builds a SigningService backed by a single
// freshly generated key pair, standing in for a full section's worth of
// key material so tests can construct a replica without first running
// a real distributed key-generation/rotation ceremony. Kept as an
// explicit, plainly named constructor rather than a build tag, so a
// grep for its name is enough to confirm no production wiring (cmd/,
// walletserver/) ever references it. Real deployments must use
// NewSigningService against a ReplicaInfo populated by the real
// key-generation collaborator.
func NewTestSigningService() (SigningService, *ReplicaInfo) {
	secret, pub := GenerateKeyPair()
	info := NewReplicaInfo(0, secret, &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pub}})
	return NewSigningService(info), info
}
