package core

import (
	"fmt"

	bls "github.com/herumi/bls-eth-go-binary/bls"

	"github.com/google/uuid"
)

// GenesisBalance is the network's total money supply, minted exactly
// once by the founding Initiate([]) call: (2^32-1) * 1e9 base units.
const GenesisBalance Money = (1<<32 - 1) * 1_000_000_000

// Replicas is the Transfer Replica: the set of wallets this process
// custodies, their durable logs, and the key material and collaborators
// needed to validate, register and propagate transfers against them.
type Replicas struct {
	locks   *WalletLocks
	info    *ReplicaInfo
	signing SigningService
	routing RoutingOverlay
	self    NodeID
	logger  Logger
}

// NewReplicas wires a Transfer Replica rooted at dir for its per-wallet
// logs.
func NewReplicas(dir string, info *ReplicaInfo, signing SigningService, routing RoutingOverlay, self NodeID, logger Logger) *Replicas {
	return &Replicas{
		locks:   NewWalletLocks(dir),
		info:    info,
		signing: signing,
		routing: routing,
		self:    self,
		logger:  logger,
	}
}

// Genesis admits the recipient wallet (failing InvalidGenesis if it
// already has history), verifies the credit proof self-verifies against
// the proof chain, and appends the founding TransferPropagated event.
// Unlike the source, this returns the constructed event rather than
// discarding it.
func (r *Replicas) Genesis(proof CreditAgreementProof) (*TransferPropagated, error) {
	walletID := proof.Credit.To
	if err := r.locks.Admit(walletID, New); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	g, err := r.locks.Acquire(walletID)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	events, err := g.Store().GetAll()
	if err != nil {
		return nil, err
	}
	if len(events) != 0 {
		return nil, fmt.Errorf("%w: wallet %s already has history", ErrInvalidGenesis, walletID)
	}

	keySet, ok := r.info.ProofChain.FindPastKey(proof.SectionKey)
	if !ok {
		return nil, fmt.Errorf("%w: bootstrap section key unknown", ErrInvalidGenesis)
	}
	aggPub, err := keySet.AggregateFor(proof.Indices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	verified, err := VerifyAggregate(proof.Signature, aggPub, creditSigningBytes(proof.Credit))
	if err != nil || !verified {
		return nil, fmt.Errorf("%w: genesis proof does not self-verify", ErrInvalidGenesis)
	}

	share, ok, err := r.signing.SignCreditProof(proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no usable key share", ErrInvalidGenesis)
	}

	ev := &TransferPropagated{Proof: proof, ReplicaShare: share, ReplicaID: r.info.ReplicaID}
	if err := g.Store().TryInsert(ev); err != nil {
		return nil, err
	}
	r.logger.Infof("genesis: wallet %s credited %d", walletID, proof.Credit.Amount)
	return ev, nil
}

// Initiate replays a recovered history verbatim (admitting custody of
// whichever wallets it touches), or, if events is empty, bootstraps a
// brand-new network by self-signing a genesis credit of GenesisBalance
// to the founding wallet, whose identity is this section's own current
// key set (there being no prior section to have signed it otherwise).
func (r *Replicas) Initiate(events []Event) error {
	if len(events) == 0 {
		return r.bootstrapGenesis()
	}
	for _, e := range events {
		if _, ok := e.(*KnownGroupAdded); ok {
			return fmt.Errorf("%w: known_group_added on replay", ErrUnsupportedEvent)
		}
		id := e.WalletID()
		if err := r.locks.Admit(id, New); err != nil {
			return err
		}
		g, err := r.locks.Acquire(id)
		if err != nil {
			return err
		}
		err = g.Store().TryInsert(e)
		g.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Replicas) bootstrapGenesis() error {
	peers := r.info.ProofChain.Current()
	keyBytes, err := peers.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	founder := NewWalletID(keyBytes)
	credit := SignedCredit{From: founder, To: founder, Amount: GenesisBalance, CreditID: uuid.New()}

	share, ok, err := r.signing.SignCreditProof(CreditAgreementProof{Credit: credit})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	if !ok {
		return fmt.Errorf("%w: no usable key share to self-sign bootstrap genesis", ErrInvalidGenesis)
	}
	agg, err := AggregateSignatures([][]byte{share})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}

	proof := CreditAgreementProof{
		Credit:     credit,
		Signature:  agg,
		SectionKey: keyBytes,
		Indices:    []int{r.info.ReplicaID},
	}
	_, err = r.Genesis(proof)
	return err
}

// Validate re-verifies a client-submitted transfer against the
// replayed wallet state, contributes this replica's signature shares,
// and appends a TransferValidated event. Returns (nil, nil)
// when preconditions hold but the replica has no usable key share.
func (r *Replicas) Validate(st SignedTransfer) (*TransferValidated, error) {
	g, err := r.locks.Acquire(st.Debit.From)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	events, err := g.Store().GetAll()
	if err != nil {
		return nil, err
	}
	w, err := FromHistory(st.Debit.From, events)
	if err != nil {
		return nil, err
	}
	existing, err := w.CheckValidate(st)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	debitShare, creditShare, ok, err := r.signing.SignTransfer(st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	ev := &TransferValidated{Debit: st.Debit, Credit: st.Credit, DebitShare: debitShare, CreditShare: creditShare, ReplicaID: r.info.ReplicaID}
	if err := g.Store().TryInsert(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Register re-verifies a quorum's threshold-signed agreement against the
// section proof chain, re-checks ordering, and appends a
// TransferRegistered event. Returns (nil, nil) when the
// agreement was already registered (idempotent replay).
func (r *Replicas) Register(proof TransferAgreementProof) (*TransferRegistered, error) {
	g, err := r.locks.Acquire(proof.Debit.From)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	events, err := g.Store().GetAll()
	if err != nil {
		return nil, err
	}
	w, err := FromHistory(proof.Debit.From, events)
	if err != nil {
		return nil, err
	}
	already, err := w.CheckRegister(proof)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	keySet, ok := r.info.ProofChain.FindPastKey(proof.SectionKey)
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownSectionKey, proof.SectionKey)
	}
	aggPub, err := keySet.AggregateFor(proof.Indices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	verified, err := VerifyAggregate(proof.Signature, aggPub, debitSigningBytes(proof.Debit))
	if err != nil || !verified {
		return nil, fmt.Errorf("%w: registration signature", ErrValidation)
	}

	ev := &TransferRegistered{Proof: proof}
	if err := g.Store().TryInsert(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReceivePropagated re-verifies a credit agreement and appends a
// TransferPropagated event at the recipient wallet, admitting custody of
// a previously unknown recipient if it falls within this replica's
// close group. Idempotent by credit id: already-applied credits return
// (nil, nil) without re-signing or re-appending.
func (r *Replicas) ReceivePropagated(proof CreditAgreementProof) (*TransferPropagated, error) {
	walletID := proof.Credit.To
	if !r.locks.Custodies(walletID) {
		group, ok := r.routing.CloseGroup(walletID.String())
		if !ok || !containsNode(group, r.self) {
			return nil, fmt.Errorf("%w: %s not in close group", ErrWalletNotFound, walletID)
		}
		if err := r.locks.Admit(walletID, New); err != nil {
			return nil, err
		}
	}

	g, err := r.locks.Acquire(walletID)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	events, err := g.Store().GetAll()
	if err != nil {
		return nil, err
	}
	w, err := FromHistory(walletID, events)
	if err != nil {
		return nil, err
	}
	if w.AlreadyCredited(proof.Credit.CreditID) {
		return nil, nil
	}

	keySet, ok := r.info.ProofChain.FindPastKey(proof.SectionKey)
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownSectionKey, proof.SectionKey)
	}
	aggPub, err := keySet.AggregateFor(proof.Indices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	verified, err := VerifyAggregate(proof.Signature, aggPub, creditSigningBytes(proof.Credit))
	if err != nil || !verified {
		return nil, fmt.Errorf("%w: credit proof signature", ErrValidation)
	}

	share, ok2, err := r.signing.SignCreditProof(proof)
	if err != nil {
		return nil, err
	}
	if !ok2 {
		return nil, nil
	}

	ev := &TransferPropagated{Proof: proof, ReplicaShare: share, ReplicaID: r.info.ReplicaID}
	if err := g.Store().TryInsert(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateReplicaKeys atomically replaces this replica's key share and
// section peer set; it cannot interleave with an in-flight
// signing call (see ReplicaInfo.UpdateKeys).
func (r *Replicas) UpdateReplicaKeys(secret *bls.SecretKey, peers *PublicKeySet) {
	r.info.UpdateKeys(secret, peers)
}

// History returns id's event log in append order.
func (r *Replicas) History(id WalletID) ([]Event, error) {
	g, err := r.locks.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	return g.Store().GetAll()
}

// Balance returns id's derived balance.
func (r *Replicas) Balance(id WalletID) (Money, error) {
	events, err := r.History(id)
	if err != nil {
		return 0, err
	}
	w, err := FromHistory(id, events)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// AllEvents returns a snapshot of every custodied wallet's log.
func (r *Replicas) AllEvents() (map[WalletID][]Event, error) {
	out := make(map[WalletID][]Event)
	for _, id := range r.locks.IDs() {
		events, err := r.History(id)
		if err != nil {
			return nil, err
		}
		out[id] = events
	}
	return out, nil
}

// ReplicasPKSet returns the section's current public key set.
func (r *Replicas) ReplicasPKSet() *PublicKeySet {
	return r.info.ProofChain.Current()
}
