package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PutKind dispatches put(request) on payload type.
type PutKind int

const (
	// PutAccountCreation is recognised by a dedicated type tag on
	// structured data; it creates the account if absent instead of
	// requiring one.
	PutAccountCreation PutKind = iota
	PutImmutableData
	PutStructuredData
)

// PutRequest is a client's request to store data, dispatched by Kind.
type PutRequest struct {
	MessageID MessageID
	Client    NodeID
	Name      string
	Kind      PutKind
	Payload   []byte
	Payment   Money
}

// AccountManagerConfig sizes the quota and request-correlation policy.
// Zero fields fall back to the package defaults.
type AccountManagerConfig struct {
	// Allowance granted to a newly created account.
	Allowance Money
	// DefaultPayment charged for a put that names no payment itself.
	DefaultPayment Money
	// CacheTTL and CacheCapacity bound the request cache.
	CacheTTL      time.Duration
	CacheCapacity int
}

// DefaultAccountManagerConfig returns the stock policy: 1 GiB
// allowance, 1 MiB per put, 5-minute cache TTL, 1000 entries.
func DefaultAccountManagerConfig() AccountManagerConfig {
	return AccountManagerConfig{
		Allowance:      DefaultAllowance,
		DefaultPayment: DefaultPayment,
		CacheTTL:       DefaultCacheTTL,
		CacheCapacity:  DefaultCacheCapacity,
	}
}

func (c AccountManagerConfig) withDefaults() AccountManagerConfig {
	d := DefaultAccountManagerConfig()
	if c.Allowance == 0 {
		c.Allowance = d.Allowance
	}
	if c.DefaultPayment == 0 {
		c.DefaultPayment = d.DefaultPayment
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = d.CacheCapacity
	}
	return c
}

// AccountManager maintains per-client quota accounts: charging quota on
// put, forwarding to the downstream data authority, correlating
// responses via RequestCache, refunding on failure, and republishing
// account state on membership churn.
//
// Accounts are only ever touched while holding mu, and the request
// cache sits behind its own lock — the design's "single-threaded task,
// or behind a dedicated lock" realised as mutexes rather than a
// dedicated goroutine, since Go callers already serialize through them
// without needing a mailbox.
type AccountManager struct {
	mu       sync.Mutex
	accounts map[string]Account
	cache    *RequestCache
	cfg      AccountManagerConfig
	routing  RoutingOverlay
	self     NodeID
	logger   Logger
}

// NewAccountManager wires an account manager against its routing
// collaborator. self is this replica's own node id, used by Churn to
// decide whether it remains in a close group. Zero cfg fields take the
// package defaults.
func NewAccountManager(cfg AccountManagerConfig, routing RoutingOverlay, self NodeID, logger Logger) *AccountManager {
	cfg = cfg.withDefaults()
	return &AccountManager{
		accounts: make(map[string]Account),
		cache:    NewRequestCache(cfg.CacheTTL, cfg.CacheCapacity, logger),
		cfg:      cfg,
		routing:  routing,
		self:     self,
		logger:   logger,
	}
}

// Close releases the request cache's reaper goroutine.
func (m *AccountManager) Close() { m.cache.Close() }

// Put dispatches on req.Kind, charges quota, forwards downstream, and
// caches the request for later correlation. A data put that names no
// payment is charged the configured default per-put payment; the
// normalised amount is what a later PutFailure refunds. A rejected put
// (no account, duplicate creation, insufficient quota) is reported back
// to the client in a failure response, not logged as an internal fault.
func (m *AccountManager) Put(req PutRequest) error {
	if req.Payment == 0 && req.Kind != PutAccountCreation {
		req.Payment = m.cfg.DefaultPayment
	}
	if err := m.charge(req); err != nil {
		if sendErr := m.routing.SendPutFailure(req.Client, req.MessageID, err.Error()); sendErr != nil {
			m.logger.Errorf("put %s: failure response to %s: %v", req.MessageID, req.Client, sendErr)
		}
		return err
	}

	group, ok := m.routing.CloseGroup(req.Name)
	if !ok || len(group) == 0 {
		m.logger.Errorf("put %s: no close group for %s", req.MessageID, req.Name)
	} else {
		for _, n := range group {
			if err := m.routing.SendPutRequest(n, req); err != nil {
				m.logger.Errorf("forward put %s to %s: %v", req.MessageID, n, err)
			}
		}
	}

	m.cache.Put(req.MessageID, req)
	return nil
}

// charge creates or looks up the client's account per req.Kind and
// debits the payment against its quota, all-or-nothing: a failed charge
// leaves no account state behind.
func (m *AccountManager) charge(req PutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, exists := m.accounts[req.Client.name()]
	switch req.Kind {
	case PutAccountCreation:
		if exists {
			return fmt.Errorf("%w: %s", ErrAccountExists, req.Client)
		}
		acct = NewAccount(m.cfg.Allowance)
	case PutImmutableData, PutStructuredData:
		if !exists {
			return fmt.Errorf("%w: %s", ErrNoSuchAccount, req.Client)
		}
	}

	if err := acct.PutData(req.Payment); err != nil {
		return err
	}
	m.accounts[req.Client.name()] = acct
	return nil
}

// PutSuccess correlates an async success response back to the original
// client request and acknowledges it.
func (m *AccountManager) PutSuccess(messageID MessageID) error {
	req, err := m.cache.Take(messageID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("serialise cached request %s: %w", messageID, err)
	}
	digest := sha256.Sum256(raw)
	return m.routing.SendPutSuccess(req.Client, uuid.NewSHA1(uuid.Nil, digest[:]))
}

// PutFailure correlates, refunds the charged quota, and sends a failure
// response.
func (m *AccountManager) PutFailure(messageID MessageID, reason string) error {
	req, err := m.cache.Take(messageID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if acct, ok := m.accounts[req.Client.name()]; ok {
		acct.DeleteData(req.Payment)
		m.accounts[req.Client.name()] = acct
	}
	m.mu.Unlock()
	return m.routing.SendPutFailure(req.Client, messageID, reason)
}

// Refresh overwrites the local account under name with account, used
// for state hand-off during membership transitions.
func (m *AccountManager) Refresh(name string, account Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[name] = account
}

// Churn iterates every account: if this replica is still in the close
// group for that account's name, broadcasts a refresh to the new group;
// otherwise drops the account from local state. A close-group lookup
// error drops the account defensively, same as a confirmed non-member.
func (m *AccountManager) Churn() {
	m.mu.Lock()
	names := make([]string, 0, len(m.accounts))
	for name := range m.accounts {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		m.mu.Lock()
		acct, ok := m.accounts[name]
		m.mu.Unlock()
		if !ok {
			continue
		}

		group, ok := m.routing.CloseGroup(name)
		if !ok || !containsNode(group, m.self) {
			m.mu.Lock()
			delete(m.accounts, name)
			m.mu.Unlock()
			continue
		}
		for _, n := range group {
			if n == m.self {
				continue
			}
			if err := m.routing.SendRefreshRequest(n, name, acct); err != nil {
				m.logger.Errorf("churn refresh %s to %s: %v", name, n, err)
			}
		}
	}
}

func containsNode(group []NodeID, self NodeID) bool {
	for _, n := range group {
		if n == self {
			return true
		}
	}
	return false
}

// name renders a NodeID as an account-map key. A dedicated method keeps
// the key representation in one place if NodeID's encoding ever changes.
func (n NodeID) name() string { return string(n) }
