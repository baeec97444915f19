// Package history keeps an append-only, hash-chained record of pipeline
// checks so that later edits to the log can be detected.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Record is one checked document.
type Record struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Digest    string `json:"digest"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	PrevHash  string `json:"prevHash"`
	Hash      string `json:"hash"`
	Signature string `json:"signature,omitempty"`
	PubKey    string `json:"pubKey,omitempty"`
}

// Entry is what a caller supplies for a new record; the ledger fills in
// the chain fields.
type Entry struct {
	Source string
	Digest string
	Status Status
	Error  string
}

// canonicalData excludes Hash, Signature and PubKey.
func (r *Record) canonicalData() ([]byte, error) {
	view := struct {
		Index     int    `json:"index"`
		Timestamp string `json:"timestamp"`
		Source    string `json:"source"`
		Digest    string `json:"digest"`
		Status    Status `json:"status"`
		Error     string `json:"error"`
		PrevHash  string `json:"prevHash"`
	}{
		Index:     r.Index,
		Timestamp: r.Timestamp,
		Source:    r.Source,
		Digest:    r.Digest,
		Status:    r.Status,
		Error:     r.Error,
		PrevHash:  r.PrevHash,
	}
	return json.Marshal(view)
}

// ComputeHash calculates SHA-256 over the canonical fields.
func (r *Record) ComputeHash() (string, error) {
	data, err := r.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRecord builds a record and computes its hash.
func NewRecord(index int, e Entry, prevHash string, now time.Time) (*Record, error) {
	r := &Record{
		Index:     index,
		Timestamp: now.UTC().Format(time.RFC3339),
		Source:    e.Source,
		Digest:    e.Digest,
		Status:    e.Status,
		Error:     e.Error,
		PrevHash:  prevHash,
	}
	h, err := r.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute record hash: %w", err)
	}
	r.Hash = h
	return r, nil
}
