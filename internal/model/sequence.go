package model

import "time"

// SequenceKind names an identifier family issued to collaborators.
type SequenceKind string

const (
	SequenceKindToken     SequenceKind = "token"
	SequenceKindAdmission SequenceKind = "admission"
	SequenceKindInvoice   SequenceKind = "invoice"
	SequenceKindPatient   SequenceKind = "patient"
	SequenceKindRecord    SequenceKind = "record"
)

// SequenceCounter holds the last value issued for a scope.
type SequenceCounter struct {
	ScopeKey  string    `db:"scope_key" json:"scope_key"`
	LastSeq   int64     `db:"last_seq" json:"last_seq"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Identifier is a formatted value together with the raw counter it came from.
type Identifier struct {
	Kind     SequenceKind `json:"kind"`
	Value    string       `json:"value"`
	Sequence int64        `json:"sequence"`
	Scope    string       `json:"scope"`
}
