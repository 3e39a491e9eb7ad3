package services

import (
	"fmt"

	core "transferledger/core"
)

// ReplicaService wraps the core Transfer Replica and Account Manager for
// the HTTP layer. It holds no invariant-bearing logic itself: every
// decision (ValidationError, AccountExists, ...) is made by core and
// simply surfaced here.
type ReplicaService struct {
	Replicas *core.Replicas
	Accounts *core.AccountManager
}

func NewService(replicas *core.Replicas, accounts *core.AccountManager) *ReplicaService {
	return &ReplicaService{Replicas: replicas, Accounts: accounts}
}

func (s *ReplicaService) Genesis(proof core.CreditAgreementProof) (*core.TransferPropagated, error) {
	return s.Replicas.Genesis(proof)
}

func (s *ReplicaService) Validate(st core.SignedTransfer) (*core.TransferValidated, error) {
	return s.Replicas.Validate(st)
}

func (s *ReplicaService) Register(proof core.TransferAgreementProof) (*core.TransferRegistered, error) {
	return s.Replicas.Register(proof)
}

func (s *ReplicaService) Propagate(proof core.CreditAgreementProof) (*core.TransferPropagated, error) {
	return s.Replicas.ReceivePropagated(proof)
}

func (s *ReplicaService) History(id core.WalletID) ([]core.Event, error) {
	return s.Replicas.History(id)
}

func (s *ReplicaService) Balance(id core.WalletID) (core.Money, error) {
	return s.Replicas.Balance(id)
}

func (s *ReplicaService) Put(req core.PutRequest) error {
	return s.Accounts.Put(req)
}

func (s *ReplicaService) PutSuccess(id core.MessageID) error {
	return s.Accounts.PutSuccess(id)
}

func (s *ReplicaService) PutFailure(id core.MessageID, reason string) error {
	return s.Accounts.PutFailure(id, reason)
}

func (s *ReplicaService) Refresh(name string, account core.Account) error {
	s.Accounts.Refresh(name, account)
	return nil
}

func (s *ReplicaService) Churn() error {
	s.Accounts.Churn()
	return nil
}

// WalletIDFromHex parses the hex-encoded canonical key bytes used in URL
// path segments back into a core.WalletID.
func WalletIDFromHex(hexStr string) (core.WalletID, error) {
	id, err := core.ParseWalletID(hexStr)
	if err != nil {
		return core.WalletID{}, fmt.Errorf("parse wallet id: %w", err)
	}
	return id, nil
}
