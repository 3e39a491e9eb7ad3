package core

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// debitSigningBytes is the canonical byte encoding a debit's owner
// signature covers. Amount and Version participate so a replayed
// signature can never be repurposed for a different amount or version.
func debitSigningBytes(d SignedDebit) []byte {
	return []byte(fmt.Sprintf("debit|%s|%s|%d|%d", d.From, d.To, d.Amount, d.Version))
}

// creditSigningBytes is the canonical byte encoding a credit's owner
// signature covers.
func creditSigningBytes(c SignedCredit) []byte {
	return []byte(fmt.Sprintf("credit|%s|%s|%d|%s", c.From, c.To, c.Amount, c.CreditID))
}

// WalletReplica is the pure, re-derivable view of a wallet's event log:
// balance, the next debit version it will accept, and the set of credit
// ids already applied (so a replayed credit never double-counts). It is
// always rebuilt from history by FromHistory rather than mutated in
// place; the log is the only durable state.
type WalletReplica struct {
	ID               WalletID
	Balance          Money
	NextDebitVersion uint64
	AppliedCredits   map[uuid.UUID]bool
	ValidatedByVers  map[uint64]*TransferValidated
	RegisteredSigs   map[uint64][]byte // debit version -> aggregate signature already accepted
}

// FromHistory replays events in append order into a WalletReplica. It
// does not verify signatures (that already happened when each event was
// first appended); replay only reconstructs state.
func FromHistory(id WalletID, events []Event) (*WalletReplica, error) {
	w := &WalletReplica{
		ID:              id,
		AppliedCredits:  make(map[uuid.UUID]bool),
		ValidatedByVers: make(map[uint64]*TransferValidated),
		RegisteredSigs:  make(map[uint64][]byte),
	}
	for _, e := range events {
		switch ev := e.(type) {
		case *TransferValidated:
			w.ValidatedByVers[ev.Debit.Version] = ev
		case *TransferRegistered:
			w.Balance -= ev.Proof.Debit.Amount
			w.NextDebitVersion = ev.Proof.Debit.Version + 1
			w.RegisteredSigs[ev.Proof.Debit.Version] = ev.Proof.Signature
		case *TransferPropagated:
			if w.AppliedCredits[ev.Proof.Credit.CreditID] {
				continue
			}
			w.Balance += ev.Proof.Credit.Amount
			w.AppliedCredits[ev.Proof.Credit.CreditID] = true
		case *KnownGroupAdded:
			return nil, fmt.Errorf("%w: known_group_added on wallet %s", ErrUnsupportedEvent, id)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, e)
		}
	}
	return w, nil
}


// CheckValidate runs every Validate precondition against this derived
// state: the debit must be signed by the wallet's own key (the wallet
// id doubles as the owner's public key), at exactly the next
// expected version, for no more than the current balance, with the
// credit amount equal to the debit amount (no fee policy is
// implemented; see creditMatchesDebit).
//
// Three outcomes: (existing, nil) if this identical debit was already
// validated and logged (idempotent replay edge case); (nil,
// nil) if every precondition passed and the caller should proceed to
// sign and append a new TransferValidated; (nil, err) on precondition
// failure. A *distinct* debit at an already-validated version is a
// precondition failure, never an idempotent hit: two different debits
// can never coexist at one version.
func (w *WalletReplica) CheckValidate(st SignedTransfer) (*TransferValidated, error) {
	if existing, ok := w.ValidatedByVers[st.Debit.Version]; ok {
		if sameDebit(existing.Debit, st.Debit) {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: version %d already validated for a different debit", ErrValidation, st.Debit.Version)
	}
	if st.Debit.Version != w.NextDebitVersion {
		return nil, fmt.Errorf("%w: debit version %d, expected %d", ErrValidation, st.Debit.Version, w.NextDebitVersion)
	}
	if st.Debit.Amount > w.Balance {
		return nil, fmt.Errorf("%w: debit amount %d exceeds balance %d", ErrValidation, st.Debit.Amount, w.Balance)
	}
	if !creditMatchesDebit(st.Debit, st.Credit) {
		return nil, fmt.Errorf("%w: credit amount does not match debit amount", ErrValidation)
	}
	ownerPub, err := DeserializePublicKey(st.Debit.From.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: owner key: %v", ErrValidation, err)
	}
	if ok, err := VerifyShare(ownerPub, debitSigningBytes(st.Debit), st.Debit.Sig); err != nil || !ok {
		return nil, fmt.Errorf("%w: debit signature", ErrValidation)
	}
	if ok, err := VerifyShare(ownerPub, creditSigningBytes(st.Credit), st.Credit.Sig); err != nil || !ok {
		return nil, fmt.Errorf("%w: credit signature", ErrValidation)
	}
	return nil, nil // caller (Replicas.Validate) fills in the signature shares and appends
}

// sameDebit reports whether a and b are the identical submitted debit,
// signature included.
func sameDebit(a, b SignedDebit) bool {
	return a.From == b.From && a.To == b.To && a.Amount == b.Amount &&
		a.Version == b.Version && bytes.Equal(a.Sig, b.Sig)
}

// creditMatchesDebit isolates the amount-equality check the design note
// calls out: a future fee policy is a one-function change here,
// though none is implemented now.
func creditMatchesDebit(d SignedDebit, c SignedCredit) bool {
	return d.Amount == c.Amount
}

// TestValidateTransfer mirrors Validate but skips the owner-signature
// check, for constructing test fixtures without a real client keypair.
// Never called outside _test.go files.
func (w *WalletReplica) TestValidateTransfer(st SignedTransfer) error {
	if st.Debit.Version != w.NextDebitVersion {
		return fmt.Errorf("%w: debit version %d, expected %d", ErrValidation, st.Debit.Version, w.NextDebitVersion)
	}
	if st.Debit.Amount > w.Balance {
		return fmt.Errorf("%w: debit amount %d exceeds balance %d", ErrValidation, st.Debit.Amount, w.Balance)
	}
	if !creditMatchesDebit(st.Debit, st.Credit) {
		return fmt.Errorf("%w: credit amount does not match debit amount", ErrValidation)
	}
	return nil
}

// CheckRegister validates a TransferAgreementProof's version against
// this derived state, independent of threshold-signature verification
// (that happens against the section proof chain in Replicas.Register,
// which has access to the key material this pure type does not).
//
// Returns (true, nil) if this exact agreement was already registered
// (idempotent no-op); (false, nil) if the version is next
// expected and the caller should append; (false, err) otherwise.
func (w *WalletReplica) CheckRegister(proof TransferAgreementProof) (alreadyRegistered bool, err error) {
	if sig, ok := w.RegisteredSigs[proof.Debit.Version]; ok {
		if bytes.Equal(sig, proof.Signature) {
			return true, nil
		}
		return false, fmt.Errorf("%w: version %d already registered under a different agreement", ErrValidation, proof.Debit.Version)
	}
	if proof.Debit.Version != w.NextDebitVersion {
		return false, fmt.Errorf("%w: debit version %d, expected %d", ErrValidation, proof.Debit.Version, w.NextDebitVersion)
	}
	return false, nil
}

// AlreadyCredited reports whether creditID has already been applied to
// this wallet: receive_propagated uses this to short-circuit to a
// no-op without re-signing or re-appending.
func (w *WalletReplica) AlreadyCredited(creditID uuid.UUID) bool {
	return w.AppliedCredits[creditID]
}
