// Package errcode defines the discriminated error taxonomy shared by the
// chain-index store and the spork manager.
package errcode

import "fmt"

// Kind identifies one of the fatal or non-fatal outcomes a caller needs to
// branch on, mirroring the chain/disk error enums the rest of the codebase
// uses (ChainErr, DiskErr) rather than ad-hoc sentinel errors.
type Kind int

const (
	Malformed Kind = iota
	StoreErr
	IndexCorrupt
	CheckpointMismatch
	BestChainMissing
	ReorgRequested
	SignatureInvalid
	ReplayOrStale
)

var kindNames = map[Kind]string{
	Malformed:          "malformed",
	StoreErr:           "store error",
	IndexCorrupt:       "index corrupt",
	CheckpointMismatch: "checkpoint mismatch",
	BestChainMissing:   "best chain missing",
	ReorgRequested:     "reorg requested",
	SignatureInvalid:   "signature invalid",
	ReplayOrStale:      "replay or stale",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown error kind (%d)", int(k))
}

// Error is the single discriminated-sum error type used across this module.
// Height and Detail are optional context; both are zero-valued when unused.
type Error struct {
	Kind   Kind
	Height int32
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Height != 0 {
		return fmt.Sprintf("%s at height %d: %s", e.Kind, e.Height, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func AtHeight(kind Kind, height int32, detail string) error {
	return &Error{Kind: kind, Height: height, Detail: detail}
}

// Is reports whether err is an *Error carrying the given Kind.
func Is(err error, kind Kind) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == kind
}
