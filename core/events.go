package core

import "github.com/google/uuid"

// EventKind tags which event variant a stored record carries.
type EventKind string

const (
	EventTransferValidated  EventKind = "transfer_validated"
	EventTransferRegistered EventKind = "transfer_registered"
	EventTransferPropagated EventKind = "transfer_propagated"
	EventKnownGroupAdded    EventKind = "known_group_added"
)

// SignedDebit is a client's request to move Amount out of From, signed by
// From's owning actor. Version must equal the wallet's next expected
// debit version for the debit to validate.
type SignedDebit struct {
	From    WalletID `json:"from"`
	To      WalletID `json:"to"`
	Amount  Money    `json:"amount"`
	Version uint64   `json:"version"`
	Sig     []byte   `json:"sig"`
}

// SignedCredit is the matching credit half of a transfer, signed by the
// same owning actor as the debit. CreditID is the idempotence key used
// at the recipient.
type SignedCredit struct {
	From     WalletID  `json:"from"`
	To       WalletID  `json:"to"`
	Amount   Money     `json:"amount"`
	CreditID uuid.UUID `json:"credit_id"`
	Sig      []byte    `json:"sig"`
}

// SignedTransfer is the {debit, credit} pair a client submits to
// Validate.
type SignedTransfer struct {
	Debit  SignedDebit  `json:"debit"`
	Credit SignedCredit `json:"credit"`
}

// TransferAgreementProof is a quorum's aggregated signature over a
// validated debit, sufficient to Register it at the source wallet.
type TransferAgreementProof struct {
	Debit      SignedDebit  `json:"debit"`
	Credit     SignedCredit `json:"credit"`
	Signature  []byte       `json:"signature"`
	SectionKey []byte       `json:"section_key"`
	Indices    []int        `json:"indices"`
}

// CreditAgreementProof is a quorum's aggregated signature over a credit,
// sufficient to propagate it at the recipient wallet.
type CreditAgreementProof struct {
	Credit     SignedCredit `json:"credit"`
	Signature  []byte       `json:"signature"`
	SectionKey []byte       `json:"section_key"`
	Indices    []int        `json:"indices"`
}

// TransferValidated is a replica's own attestation that a debit is
// admissible: the submitted transfer plus this replica's debit- and
// credit-signature shares.
type TransferValidated struct {
	Debit       SignedDebit  `json:"debit"`
	Credit      SignedCredit `json:"credit"`
	DebitShare  []byte       `json:"debit_share"`
	CreditShare []byte       `json:"credit_share"`
	ReplicaID   int          `json:"replica_id"`
}

func (e *TransferValidated) Kind() EventKind    { return EventTransferValidated }
func (e *TransferValidated) WalletID() WalletID { return e.Debit.From }

// TransferRegistered is a threshold-signed agreement accepted and
// ordered at the debit source; it advances the wallet's next expected
// debit version.
type TransferRegistered struct {
	Proof TransferAgreementProof `json:"proof"`
}

func (e *TransferRegistered) Kind() EventKind    { return EventTransferRegistered }
func (e *TransferRegistered) WalletID() WalletID { return e.Proof.Debit.From }

// TransferPropagated is a threshold-signed credit accepted, idempotently,
// at the credit destination, plus this replica's own signing share over
// the credit proof.
type TransferPropagated struct {
	Proof        CreditAgreementProof `json:"proof"`
	ReplicaShare []byte               `json:"replica_share"`
	ReplicaID    int                  `json:"replica_id"`
}

func (e *TransferPropagated) Kind() EventKind    { return EventTransferPropagated }
func (e *TransferPropagated) WalletID() WalletID { return e.Proof.Credit.To }

// KnownGroupAdded is reserved for cross-section trust extension. It is
// never produced by this implementation; Initiate rejects it loudly if
// encountered on replay (see design notes on the open question).
type KnownGroupAdded struct {
	Wallet  WalletID `json:"wallet"`
	GroupID string   `json:"group_id"`
}

func (e *KnownGroupAdded) Kind() EventKind    { return EventKnownGroupAdded }
func (e *KnownGroupAdded) WalletID() WalletID { return e.Wallet }

// Event is any of the four wallet-log event variants.
type Event interface {
	Kind() EventKind
	WalletID() WalletID
}

// record is the on-disk envelope for a single event: exactly one of its
// payload fields is set, selected by Kind.
type record struct {
	Kind       EventKind           `json:"kind"`
	Validated  *TransferValidated  `json:"validated,omitempty"`
	Registered *TransferRegistered `json:"registered,omitempty"`
	Propagated *TransferPropagated `json:"propagated,omitempty"`
	GroupAdded *KnownGroupAdded    `json:"group_added,omitempty"`
}

func toRecord(e Event) record {
	switch v := e.(type) {
	case *TransferValidated:
		return record{Kind: EventTransferValidated, Validated: v}
	case *TransferRegistered:
		return record{Kind: EventTransferRegistered, Registered: v}
	case *TransferPropagated:
		return record{Kind: EventTransferPropagated, Propagated: v}
	case *KnownGroupAdded:
		return record{Kind: EventKnownGroupAdded, GroupAdded: v}
	default:
		panic("core: unknown event type")
	}
}

func (r record) toEvent() (Event, error) {
	switch r.Kind {
	case EventTransferValidated:
		return r.Validated, nil
	case EventTransferRegistered:
		return r.Registered, nil
	case EventTransferPropagated:
		return r.Propagated, nil
	case EventKnownGroupAdded:
		return r.GroupAdded, nil
	default:
		return nil, ErrUnsupportedEvent
	}
}
