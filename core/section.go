package core

import (
	"bytes"
	"fmt"
	"sync"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

// PublicKeySet is a section's threshold public key material: one public
// key per replica index, ordered by index, plus the quorum threshold. It
// models peer_replicas from the design: the set a replica's own share is
// drawn from.
type PublicKeySet struct {
	Threshold int
	Members   []*bls.PublicKey
}

// AggregateAll returns the aggregate of every member key; used as the
// set's own canonical identity when walking the proof chain.
func (ks *PublicKeySet) AggregateAll() (*bls.PublicKey, error) {
	return AggregatePublicKeys(ks.Members)
}

// AggregateFor returns the aggregate public key for exactly the given
// replica indices, used to verify an aggregate signature contributed by
// that subset. It fails unless the indices name at least Threshold
// distinct members.
func (ks *PublicKeySet) AggregateFor(indices []int) (*bls.PublicKey, error) {
	if len(indices) < ks.Threshold {
		return nil, fmt.Errorf("%d signers, threshold is %d", len(indices), ks.Threshold)
	}
	seen := make(map[int]bool, len(indices))
	pubs := make([]*bls.PublicKey, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(ks.Members) {
			return nil, fmt.Errorf("replica index %d out of range", idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("replica index %d repeated", idx)
		}
		seen[idx] = true
		pubs = append(pubs, ks.Members[idx])
	}
	return AggregatePublicKeys(pubs)
}

// Bytes returns the canonical byte identity of the set (its aggregate
// key, serialized), used for equality checks against a proof's
// referenced section key.
func (ks *PublicKeySet) Bytes() ([]byte, error) {
	agg, err := ks.AggregateAll()
	if err != nil {
		return nil, err
	}
	return agg.Serialize(), nil
}

// SectionProofChain is the ordered history of a section's threshold
// public key sets, used to validate proofs that were signed under a
// prior membership. It is append-only: UpdateReplicaKeys pushes the
// outgoing current key onto history before installing the new one, so
// the chain always contains every key this replica has ever signed
// under.
type SectionProofChain struct {
	mu      sync.RWMutex
	current *PublicKeySet
	history []*PublicKeySet // oldest first, excludes current
}

// NewSectionProofChain starts a chain at the section's initial key.
func NewSectionProofChain(initial *PublicKeySet) *SectionProofChain {
	return &SectionProofChain{current: initial}
}

// Current returns the chain's present key set.
func (c *SectionProofChain) Current() *PublicKeySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// FindPastKey scans the chain (current, then history) for a key set
// whose canonical byte identity matches keyBytes. The chain is searched
// by membership, not position; insertion order only preserves lineage
// for diagnostics.
func (c *SectionProofChain) FindPastKey(keyBytes []byte) (*PublicKeySet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current != nil {
		if b, err := c.current.Bytes(); err == nil && bytes.Equal(b, keyBytes) {
			return c.current, true
		}
	}
	for _, ks := range c.history {
		b, err := ks.Bytes()
		if err != nil {
			continue
		}
		if bytes.Equal(b, keyBytes) {
			return ks, true
		}
	}
	return nil, false
}

// rotate installs next as the current key set, pushing the outgoing
// current onto history. Callers hold the write lock on the owning
// ReplicaInfo for the duration, so rotation cannot interleave with
// in-flight signature-share production (see ReplicaInfo.UpdateKeys).
func (c *SectionProofChain) rotate(next *PublicKeySet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.history = append(c.history, c.current)
	}
	c.current = next
}

// ReplicaInfo is a single replica's view of its own key material: its
// index within the section, its share of the section's threshold
// secret, the section's peer public key set, and the section proof
// chain. Readers take ReplicaInfo.mu for read during signature-share
// production; UpdateKeys takes it for write, so a key rotation can never
// observe (or be observed by) an in-flight signing operation.
type ReplicaInfo struct {
	mu          sync.RWMutex
	ReplicaID   int
	SecretShare *bls.SecretKey
	Peers       *PublicKeySet
	ProofChain  *SectionProofChain
}

// NewReplicaInfo constructs a replica's key material at section genesis.
func NewReplicaInfo(id int, secret *bls.SecretKey, peers *PublicKeySet) *ReplicaInfo {
	return &ReplicaInfo{
		ReplicaID:   id,
		SecretShare: secret,
		Peers:       peers,
		ProofChain:  NewSectionProofChain(peers),
	}
}

// Snapshot returns the current key material under a read lock, safe to
// use for the duration of one signing or verification call.
func (r *ReplicaInfo) Snapshot() (secret *bls.SecretKey, peers *PublicKeySet, chain *SectionProofChain) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.SecretShare, r.Peers, r.ProofChain
}

// UpdateKeys atomically replaces this replica's key share and section
// peer set, rotating the proof chain so proofs signed under the
// outgoing key remain verifiable. It blocks until any signing or
// verification holding a read lock on this ReplicaInfo has finished,
// and blocks those out until it completes.
func (r *ReplicaInfo) UpdateKeys(secret *bls.SecretKey, peers *PublicKeySet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ProofChain.rotate(peers)
	r.SecretShare = secret
	r.Peers = peers
}
