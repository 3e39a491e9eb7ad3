package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// OpenMode selects TransferStore.Open's behavior with respect to an
// existing log file.
type OpenMode int

const (
	// Load requires the log to already exist.
	Load OpenMode = iota
	// New creates the log if absent; a no-op if it already exists.
	New
)

// TransferStore is the append-only durable log for a single wallet. Each
// record is a 4-byte big-endian length prefix followed by the JSON
// encoding of one event. Appends are flushed and fsynced before
// TryInsert returns success, and a write that fails is truncated back
// to its pre-write size. A crash in the middle of an append is not
// rolled back: it can leave a partial trailing record, which GetAll
// reports as ErrStore.
//
// This is the single durable artifact of the replica; WalletReplica
// state is always re-derived from it, never itself persisted.
type TransferStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// openTransferStore opens (or creates, per mode) the log file for id
// under root.
func openTransferStore(root string, id WalletID, mode OpenMode) (*TransferStore, error) {
	path := filepath.Join(root, id.String()+".log")
	flags := os.O_RDWR
	switch mode {
	case Load:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrStore, path, err)
		}
	case New:
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStore, path, err)
	}
	return &TransferStore{path: path, f: f}, nil
}

// GetAll replays every record in append order.
func (s *TransferStore) GetAll() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek %s: %v", ErrStore, s.path, err)
	}
	var events []Event
	lenBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(s.f, lenBuf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: read length %s: %v", ErrStore, s.path, err)
		}
		n := binary.BigEndian.Uint32(lenBuf)
		body := make([]byte, n)
		if _, err := io.ReadFull(s.f, body); err != nil {
			return nil, fmt.Errorf("%w: read record %s: %v", ErrStore, s.path, err)
		}
		var rec record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode record %s: %v", ErrStore, s.path, err)
		}
		ev, err := rec.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// TryInsert appends event durably, or fails with ErrStore without having
// modified the file (a length-prefixed write that fails partway is
// truncated back to its pre-write size before returning).
func (s *TransferStore) TryInsert(e Event) error {
	body, err := json.Marshal(toRecord(e))
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: seek end %s: %v", ErrStore, s.path, err)
	}
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(body)))
	if _, err := s.f.Write(lenBuf); err != nil {
		_ = s.f.Truncate(offset)
		return fmt.Errorf("%w: write length %s: %v", ErrStore, s.path, err)
	}
	if _, err := s.f.Write(body); err != nil {
		_ = s.f.Truncate(offset)
		return fmt.Errorf("%w: write record %s: %v", ErrStore, s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		_ = s.f.Truncate(offset)
		return fmt.Errorf("%w: sync %s: %v", ErrStore, s.path, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (s *TransferStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
