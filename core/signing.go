package core

import "sync"

// SigningService is the collaborator that contributes this replica's
// share of a transfer or credit signature. It is shared across all
// wallets behind its own lock, acquired after the wallet lock and
// released before the event append completes, so it can never be
// re-entered from within a wallet critical section.
type SigningService interface {
	// SignTransfer returns this replica's debit- and credit-signature
	// shares, or ok=false if the replica has no usable key share (not
	// yet received it, or no longer a section member).
	SignTransfer(st SignedTransfer) (debitShare, creditShare []byte, ok bool, err error)
	// SignCreditProof returns this replica's signature share over a
	// credit agreement, or ok=false under the same conditions.
	SignCreditProof(proof CreditAgreementProof) (share []byte, ok bool, err error)
}

// blsSigningService signs with a ReplicaInfo's current key share. Its
// mutex is purely an implementation safeguard against concurrent
// misuse from outside the wallet-lock discipline the design relies on;
// signing itself never blocks on a wallet lock.
type blsSigningService struct {
	mu   sync.Mutex
	info *ReplicaInfo
}

// NewSigningService builds the production signing collaborator bound to
// info's key material. A key rotation (ReplicaInfo.UpdateKeys) is safe
// to call concurrently: it takes info's own write lock, which blocks
// until any in-flight Snapshot reads here have completed.
func NewSigningService(info *ReplicaInfo) SigningService {
	return &blsSigningService{info: info}
}

func (s *blsSigningService) SignTransfer(st SignedTransfer) ([]byte, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, _, _ := s.info.Snapshot()
	if secret == nil {
		return nil, nil, false, nil
	}
	debitShare := SignShare(secret, debitSigningBytes(st.Debit))
	creditShare := SignShare(secret, creditSigningBytes(st.Credit))
	return debitShare, creditShare, true, nil
}

func (s *blsSigningService) SignCreditProof(proof CreditAgreementProof) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, _, _ := s.info.Snapshot()
	if secret == nil {
		return nil, false, nil
	}
	return SignShare(secret, creditSigningBytes(proof.Credit)), true, nil
}
