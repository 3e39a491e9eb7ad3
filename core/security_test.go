package core

import (
	"testing"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

func TestSignShareVerifyShare(t *testing.T) {
	sk, pk := GenerateKeyPair()
	msg := []byte("hello wallet")
	sig := SignShare(sk, msg)
	ok, err := VerifyShare(pk, msg, sig)
	if err != nil {
		t.Fatalf("VerifyShare failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyShareRejectsWrongKey(t *testing.T) {
	sk, _ := GenerateKeyPair()
	_, otherPub := GenerateKeyPair()
	msg := []byte("hello wallet")
	sig := SignShare(sk, msg)
	ok, err := VerifyShare(otherPub, msg, sig)
	if err != nil {
		t.Fatalf("VerifyShare failed: %v", err)
	}
	if ok {
		t.Fatalf("expected signature to fail verification against wrong key")
	}
}

func TestAggregateSignaturesAndVerify(t *testing.T) {
	sk1, pk1 := GenerateKeyPair()
	sk2, pk2 := GenerateKeyPair()
	msg := []byte("quorum transfer")

	sig1 := SignShare(sk1, msg)
	sig2 := SignShare(sk2, msg)

	agg, err := AggregateSignatures([][]byte{sig1, sig2})
	if err != nil {
		t.Fatalf("AggregateSignatures failed: %v", err)
	}
	aggPub, err := AggregatePublicKeys([]*bls.PublicKey{pk1, pk2})
	if err != nil {
		t.Fatalf("AggregatePublicKeys failed: %v", err)
	}
	ok, err := VerifyAggregate(agg, aggPub, msg)
	if err != nil {
		t.Fatalf("VerifyAggregate failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected aggregate signature to verify")
	}
}

func TestAggregateSignaturesEmpty(t *testing.T) {
	if _, err := AggregateSignatures(nil); err == nil {
		t.Fatalf("expected error aggregating zero signatures")
	}
}

func TestPublicKeySetAggregateFor(t *testing.T) {
	_, pk1 := GenerateKeyPair()
	_, pk2 := GenerateKeyPair()
	_, pk3 := GenerateKeyPair()
	ks := &PublicKeySet{Threshold: 2, Members: []*bls.PublicKey{pk1, pk2, pk3}}

	agg, err := ks.AggregateFor([]int{0, 2})
	if err != nil {
		t.Fatalf("AggregateFor failed: %v", err)
	}
	want, err := AggregatePublicKeys([]*bls.PublicKey{pk1, pk3})
	if err != nil {
		t.Fatalf("AggregatePublicKeys failed: %v", err)
	}
	if agg.Serialize() == nil || want.Serialize() == nil {
		t.Fatalf("expected non-nil serialized keys")
	}
	if string(agg.Serialize()) != string(want.Serialize()) {
		t.Fatalf("AggregateFor result does not match direct aggregation")
	}
}

func TestPublicKeySetAggregateForOutOfRange(t *testing.T) {
	_, pk1 := GenerateKeyPair()
	ks := &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pk1}}
	if _, err := ks.AggregateFor([]int{5}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSectionProofChainFindPastKey(t *testing.T) {
	_, pk1 := GenerateKeyPair()
	ks1 := &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pk1}}
	chain := NewSectionProofChain(ks1)

	b1, err := ks1.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	found, ok := chain.FindPastKey(b1)
	if !ok || found != ks1 {
		t.Fatalf("expected to find current key set")
	}

	_, pk2 := GenerateKeyPair()
	ks2 := &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pk2}}
	chain.rotate(ks2)

	found, ok = chain.FindPastKey(b1)
	if !ok || found != ks1 {
		t.Fatalf("expected outgoing key to remain findable in history")
	}
	b2, err := ks2.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	found, ok = chain.FindPastKey(b2)
	if !ok || found != ks2 {
		t.Fatalf("expected new key to be current")
	}
}

func TestReplicaInfoUpdateKeysRotatesChain(t *testing.T) {
	secret, pub := GenerateKeyPair()
	peers := &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pub}}
	info := NewReplicaInfo(0, secret, peers)

	oldBytes, err := peers.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}

	newSecret, newPub := GenerateKeyPair()
	newPeers := &PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{newPub}}
	info.UpdateKeys(newSecret, newPeers)

	if _, ok := info.ProofChain.FindPastKey(oldBytes); !ok {
		t.Fatalf("expected outgoing key preserved in proof chain history")
	}
	gotSecret, gotPeers, _ := info.Snapshot()
	if gotSecret != newSecret || gotPeers != newPeers {
		t.Fatalf("expected snapshot to reflect updated key material")
	}
}
