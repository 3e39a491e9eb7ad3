package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAccountManagerPutRequiresCreationFirst(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "obj", Kind: PutImmutableData, Payment: 10})
	if !errors.Is(err, ErrNoSuchAccount) {
		t.Fatalf("expected ErrNoSuchAccount, got %v", err)
	}

	// The rejection reaches the client as a failure response.
	var sawFailure bool
	for _, s := range routing.Sent() {
		if s.Kind == "put_failure" {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatalf("expected a put_failure response for the rejected put")
	}
}

func TestAccountManagerCreateThenPut(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation, Payment: 0}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "obj", Kind: PutImmutableData, Payment: 2048}); err != nil {
		t.Fatalf("immutable data put failed: %v", err)
	}
}

func TestAccountManagerDuplicateCreationRejected(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAccountManagerPutSuccessAcknowledges(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	id := uuid.New()
	req := PutRequest{MessageID: id, Client: client, Name: "obj", Kind: PutImmutableData, Payload: []byte("data"), Payment: 64}
	if err := m.Put(req); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := m.PutSuccess(id); err != nil {
		t.Fatalf("PutSuccess failed: %v", err)
	}

	var sawSuccess bool
	for _, s := range routing.Sent() {
		if s.Kind == "put_success" {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Fatalf("expected a put_success message to be recorded")
	}
}

func TestAccountManagerPutFailureRefundsQuota(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	id := uuid.New()
	req := PutRequest{MessageID: id, Client: client, Name: "obj", Kind: PutImmutableData, Payment: 4096}
	if err := m.Put(req); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	m.mu.Lock()
	before := m.accounts[client.name()]
	m.mu.Unlock()
	if before.DataStored != 4096 {
		t.Fatalf("expected 4096 bytes charged, got %d", before.DataStored)
	}

	if err := m.PutFailure(id, "downstream rejected"); err != nil {
		t.Fatalf("PutFailure failed: %v", err)
	}

	m.mu.Lock()
	after := m.accounts[client.name()]
	m.mu.Unlock()
	if after.DataStored != 0 {
		t.Fatalf("expected refund back to 0, got %d", after.DataStored)
	}
}

func TestAccountManagerConfiguredQuotaApplies(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	cfg := AccountManagerConfig{Allowance: 1000, DefaultPayment: 400}
	m := NewAccountManager(cfg, routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}

	// A data put that names no payment is charged the configured default.
	for i := 0; i < 2; i++ {
		if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "obj", Kind: PutImmutableData}); err != nil {
			t.Fatalf("put %d failed: %v", i, err)
		}
	}

	m.mu.Lock()
	acct := m.accounts[client.name()]
	m.mu.Unlock()
	if acct.Allowance != 1000 {
		t.Fatalf("expected configured allowance 1000, got %d", acct.Allowance)
	}
	if acct.DataStored != 800 {
		t.Fatalf("expected 2x default payment charged, got %d", acct.DataStored)
	}

	// A third default-payment put exceeds the configured allowance.
	err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "obj", Kind: PutImmutableData})
	if !errors.Is(err, ErrLowBalance) {
		t.Fatalf("expected ErrLowBalance against the configured allowance, got %v", err)
	}
}

func TestAccountManagerChurnDropsNonMember(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	routing.Leave()
	m.Churn()

	m.mu.Lock()
	_, exists := m.accounts[client.name()]
	m.mu.Unlock()
	if exists {
		t.Fatalf("expected account dropped after losing close-group membership")
	}
}

func TestAccountManagerChurnKeepsMember(t *testing.T) {
	routing := NewMemoryRouting(NodeID("self"))
	m := NewAccountManager(DefaultAccountManagerConfig(), routing, NodeID("self"), nopLogger{})
	defer m.Close()

	client := NodeID("client-1")
	if err := m.Put(PutRequest{MessageID: uuid.New(), Client: client, Name: "acct", Kind: PutAccountCreation}); err != nil {
		t.Fatalf("account creation put failed: %v", err)
	}
	m.Churn()

	m.mu.Lock()
	_, exists := m.accounts[client.name()]
	m.mu.Unlock()
	if !exists {
		t.Fatalf("expected account retained while still a close-group member")
	}
}
