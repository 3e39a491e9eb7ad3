package core

import "sync"

// MemoryRouting is a single-process RoutingOverlay: every name's close
// group is just this node, and every "send" is a direct local call
// recorded for inspection. It stands in for the real routing/gossip
// collaborator a production deployment would run — good enough to run
// the replica and account manager standalone or under test, never a
// substitute for a real overlay in a multi-node deployment.
type MemoryRouting struct {
	mu      sync.Mutex
	self    NodeID
	sent    []sentMessage
	members map[NodeID]bool
	events  chan MembershipEvent
}

type sentMessage struct {
	Kind string
	To   NodeID
}

// NewMemoryRouting builds a RoutingOverlay where self is the only node
// in every close group.
func NewMemoryRouting(self NodeID) *MemoryRouting {
	return &MemoryRouting{
		self:    self,
		members: map[NodeID]bool{self: true},
		events:  make(chan MembershipEvent, 16),
	}
}

func (m *MemoryRouting) CloseGroup(name string) ([]NodeID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.members[m.self] {
		return nil, false
	}
	group := make([]NodeID, 0, len(m.members))
	for n := range m.members {
		group = append(group, n)
	}
	return group, true
}

func (m *MemoryRouting) SendPutRequest(to NodeID, req PutRequest) error {
	m.record("put_request", to)
	return nil
}

func (m *MemoryRouting) SendPutSuccess(to NodeID, messageID MessageID) error {
	m.record("put_success", to)
	return nil
}

func (m *MemoryRouting) SendPutFailure(to NodeID, messageID MessageID, reason string) error {
	m.record("put_failure", to)
	return nil
}

func (m *MemoryRouting) SendRefreshRequest(to NodeID, name string, account Account) error {
	m.record("refresh", to)
	return nil
}

func (m *MemoryRouting) Membership() <-chan MembershipEvent { return m.events }

func (m *MemoryRouting) record(kind string, to NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Kind: kind, To: to})
}

// Sent returns every message recorded so far, for test assertions.
func (m *MemoryRouting) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// Leave drops self from every close group, simulating this node losing
// section membership (e.g. during churn), and emits a node-lost event.
func (m *MemoryRouting) Leave() {
	m.mu.Lock()
	delete(m.members, m.self)
	m.mu.Unlock()
	m.emit(MembershipEvent{Added: false, Node: m.self})
}

// Join restores self to every close group and emits a node-added event.
func (m *MemoryRouting) Join() {
	m.mu.Lock()
	m.members[m.self] = true
	m.mu.Unlock()
	m.emit(MembershipEvent{Added: true, Node: m.self})
}

// emit delivers a membership event without blocking: a subscriber that
// has fallen behind misses the notification rather than wedging the
// overlay.
func (m *MemoryRouting) emit(ev MembershipEvent) {
	select {
	case m.events <- ev:
	default:
	}
}
