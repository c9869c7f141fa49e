// Package stub provides scripted in-memory implementations of the solana
// client interfaces for tests and offline seeding.
package stub

import (
	"context"
	"sync"

	"solana-captable/internal/solana"
)

// RPCClient implements solana.RPCClient from scripted data.
type RPCClient struct {
	mu           sync.Mutex
	CurrentSlot  int64
	BlockTimes   map[int64]int64
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		BlockTimes:   make(map[int64]int64),
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
	}
}

// GetSlot returns the scripted current slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentSlot, nil
}

// SetSlot advances the scripted current slot.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentSlot = slot
}

// GetBlockTime returns the scripted block time for a slot, nil if unset.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.BlockTimes[slot]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// GetSignaturesForAddress returns scripted signatures, honoring Limit and
// Until the way the indexer uses them.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs := c.Signatures[address]
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}
	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// GetTransaction returns the scripted transaction, nil when unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// AddTransaction scripts a transaction and prepends its signature for the
// address (getSignaturesForAddress returns newest first).
func (c *RPCClient) AddTransaction(address string, tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Transactions[tx.Signature] = tx
	info := solana.SignatureInfo{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Err:       tx.Err,
	}
	if tx.BlockTime > 0 {
		bt := tx.BlockTime
		info.BlockTime = &bt
	}
	c.Signatures[address] = append([]solana.SignatureInfo{info}, c.Signatures[address]...)
	if tx.Slot > c.CurrentSlot {
		c.CurrentSlot = tx.Slot
	}
}

// SlotFeed implements solana.SlotFeed from a channel the test drives.
type SlotFeed struct {
	ch        chan solana.SlotEvent
	closeOnce sync.Once
}

var _ solana.SlotFeed = (*SlotFeed)(nil)

// NewSlotFeed creates a new stub slot feed.
func NewSlotFeed() *SlotFeed {
	return &SlotFeed{ch: make(chan solana.SlotEvent, 64)}
}

// Slots returns the slot event channel.
func (f *SlotFeed) Slots() <-chan solana.SlotEvent {
	return f.ch
}

// Emit pushes a slot event into the feed.
func (f *SlotFeed) Emit(slot int64) {
	f.ch <- solana.SlotEvent{Slot: slot, Parent: slot - 1, Root: slot - 32}
}

// Close closes the feed channel.
func (f *SlotFeed) Close() error {
	f.closeOnce.Do(func() { close(f.ch) })
	return nil
}
