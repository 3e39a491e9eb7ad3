package core

import "fmt"

// Default quota constants: 1 GiB allowance, 1 MiB per put.
const (
	DefaultAllowance Money = 1 << 30 // 1,073,741,824 bytes
	DefaultPayment   Money = 1 << 20 // 1,048,576 bytes
)

// Account is a client's storage quota: data_stored + space_available is
// invariant at the account's allowance for its whole lifetime.
type Account struct {
	Allowance      Money `json:"allowance"`
	DataStored     Money `json:"data_stored"`
	SpaceAvailable Money `json:"space_available"`
}

// NewAccount creates an account at the given allowance, fully unused.
func NewAccount(allowance Money) Account {
	return Account{Allowance: allowance, DataStored: 0, SpaceAvailable: allowance}
}

// PutData charges size bytes against the account's quota.
func (a *Account) PutData(size Money) error {
	if size > a.SpaceAvailable {
		return fmt.Errorf("%w: need %d, have %d", ErrLowBalance, size, a.SpaceAvailable)
	}
	a.DataStored += size
	a.SpaceAvailable -= size
	return nil
}

// DeleteData refunds size bytes, clamping on underflow: if fewer than
// size bytes are recorded as stored, the whole account resets to fully
// unused rather than going negative.
func (a *Account) DeleteData(size Money) {
	if size > a.DataStored {
		a.SpaceAvailable += a.DataStored
		a.DataStored = 0
		return
	}
	a.DataStored -= size
	a.SpaceAvailable += size
}
