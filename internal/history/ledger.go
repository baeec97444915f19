package history

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"pipecheck/internal/security"
)

// Ledger is a JSON lines file of Records, one per line, mirrored in memory.
type Ledger struct {
	mu      sync.Mutex
	fs      afero.Fs
	path    string
	records []*Record
	priv    ed25519.PrivateKey
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithSigningKey signs every appended record with priv.
func WithSigningKey(priv ed25519.PrivateKey) Option {
	return func(l *Ledger) { l.priv = priv }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// OpenLedger loads the ledger at path, creating an empty file if it does not
// exist.
func OpenLedger(fs afero.Fs, path string, opts ...Option) (*Ledger, error) {
	l := &Ledger{fs: fs, path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
		if err := afero.WriteFile(fs, path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create history file: %w", err)
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var r Record
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode history entry %d: %w", len(l.records), err)
		}
		l.records = append(l.records, &r)
	}
	return l, nil
}

// Append chains e onto the ledger, persists it and returns the new record.
func (l *Ledger) Append(e Entry) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.records); n > 0 {
		prev = l.records[n-1].Hash
	}
	r, err := NewRecord(len(l.records), e, prev, l.now())
	if err != nil {
		return nil, err
	}
	if len(l.priv) > 0 {
		r.Signature = security.SignData(l.priv, []byte(r.Hash))
		r.PubKey = hex.EncodeToString(l.priv.Public().(ed25519.PublicKey))
	}

	f, err := l.fs.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return nil, fmt.Errorf("write history file: %w", err)
	}

	l.records = append(l.records, r)
	return r, nil
}

// Records returns a copy of every record in order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = *r
	}
	return out
}

// Find returns the records of checks whose document had digest.
func (l *Ledger) Find(digest string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if r.Digest == digest {
			out = append(out, *r)
		}
	}
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// LastHash returns the hash of the newest record, or "" when empty.
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return ""
	}
	return l.records[len(l.records)-1].Hash
}
