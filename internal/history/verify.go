package history

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"pipecheck/internal/security"
)

// ErrChainBroken is returned when a record no longer matches its hash or
// its predecessor.
var ErrChainBroken = errors.New("history chain broken")

// Verify recomputes each record hash and link, and checks signatures where
// present.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return verifyRecords(l.records)
}

// VerifySigner runs Verify and additionally requires every record to be
// signed by pub. A record carrying a valid signature from another key is
// rejected.
func (l *Ledger) VerifySigner(pub ed25519.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := verifyRecords(l.records); err != nil {
		return err
	}
	want := hex.EncodeToString(pub)
	for _, r := range l.records {
		if r.Signature == "" {
			return fmt.Errorf("%w: record %d is unsigned", ErrChainBroken, r.Index)
		}
		if r.PubKey != want {
			return fmt.Errorf("%w: record %d signed by another key", ErrChainBroken, r.Index)
		}
	}
	return nil
}

func verifyRecords(records []*Record) error {
	for i, r := range records {
		if r.Index != i {
			return fmt.Errorf("%w: index mismatch: expected %d got %d", ErrChainBroken, i, r.Index)
		}
		h, err := r.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash for index %d: %w", r.Index, err)
		}
		if h != r.Hash {
			return fmt.Errorf("%w: hash mismatch at index %d", ErrChainBroken, r.Index)
		}
		if i > 0 && r.PrevHash != records[i-1].Hash {
			return fmt.Errorf("%w: prev hash mismatch at index %d", ErrChainBroken, r.Index)
		}
		if r.Signature == "" {
			continue
		}
		ok, err := security.VerifySignatureFromHex(r.PubKey, []byte(r.Hash), r.Signature)
		if err != nil {
			return fmt.Errorf("%w: signature at index %d: %v", ErrChainBroken, r.Index, err)
		}
		if !ok {
			return fmt.Errorf("%w: bad signature at index %d", ErrChainBroken, r.Index)
		}
	}
	return nil
}
