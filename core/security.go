// Package core - BLS12-381 signing and aggregation primitives shared by
// the signing service and the wallet verification logic.
//
// Trimmed from the stack of crypto helpers a full node would otherwise
// carry (encryption at rest, TLS, Merkle roots, audit trails, anomaly
// detection, a second post-quantum signature scheme) down to exactly
// what a threshold-signed wallet log needs: sign, verify, aggregate.
package core

import (
	"errors"
	"fmt"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

func init() {
	if err := bls.Init(bls.BLS12_381); err != nil {
		panic(fmt.Errorf("bls init: %w", err))
	}
	bls.SetETHmode(bls.EthModeDraft07)
}

// GenerateKeyPair produces a fresh BLS secret/public key pair, used by
// tests and by the genesis bootstrap tooling to mint section keys.
func GenerateKeyPair() (*bls.SecretKey, *bls.PublicKey) {
	var sk bls.SecretKey
	sk.SetByCSPRNG()
	return &sk, sk.GetPublicKey()
}

// SignShare signs msg with sk, returning the compressed signature share.
func SignShare(sk *bls.SecretKey, msg []byte) []byte {
	return sk.SignByte(msg).Serialize()
}

// VerifyShare verifies a single compressed signature share against pub.
func VerifyShare(pub *bls.PublicKey, msg, sig []byte) (bool, error) {
	var s bls.Sign
	if err := s.Deserialize(sig); err != nil {
		return false, fmt.Errorf("deserialize signature: %w", err)
	}
	return s.VerifyByte(pub, msg), nil
}

// AggregateSignatures merges compressed BLS signature shares into a
// single aggregate signature. Used for the threshold quorum aggregation
// that produces a TransferAgreementProof/CreditAgreementProof, including
// the single-share proof the bootstrap genesis signs for itself.
func AggregateSignatures(shares [][]byte) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errors.New("no signature shares to aggregate")
	}
	var agg bls.Sign
	for i, raw := range shares {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("signature share %d: %w", i, err)
		}
		if i == 0 {
			agg = s
		} else {
			agg.Add(&s)
		}
	}
	return agg.Serialize(), nil
}

// AggregatePublicKeys merges BLS public keys, mirroring
// AggregateSignatures, so a quorum's combined public key can be derived
// from the individual replica keys that contributed to it.
func AggregatePublicKeys(pubs []*bls.PublicKey) (*bls.PublicKey, error) {
	if len(pubs) == 0 {
		return nil, errors.New("no public keys to aggregate")
	}
	agg := *pubs[0]
	for _, p := range pubs[1:] {
		agg.Add(p)
	}
	return &agg, nil
}

// VerifyAggregate verifies an aggregate signature produced by
// AggregateSignatures against an aggregate public key for the same
// message.
func VerifyAggregate(aggSig []byte, aggPub *bls.PublicKey, msg []byte) (bool, error) {
	var s bls.Sign
	if err := s.Deserialize(aggSig); err != nil {
		return false, fmt.Errorf("deserialize aggregate signature: %w", err)
	}
	return s.VerifyByte(aggPub, msg), nil
}

// DeserializePublicKey parses a compressed BLS public key.
func DeserializePublicKey(raw []byte) (*bls.PublicKey, error) {
	var pk bls.PublicKey
	if err := pk.Deserialize(raw); err != nil {
		return nil, fmt.Errorf("deserialize public key: %w", err)
	}
	return &pk, nil
}
