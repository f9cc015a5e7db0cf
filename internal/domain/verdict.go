package domain

import (
	"fmt"
	"time"
)

// Verdict is the tri-state existence classification for one platform.
type Verdict int

const (
	Unknown Verdict = iota
	Exists
	NotFound
)

func (v Verdict) String() string {
	switch v {
	case Exists:
		return "exists"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "exists":
		*v = Exists
	case "not_found":
		*v = NotFound
	case "unknown":
		*v = Unknown
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}

// Available derives the externally reported flag: true when the handle is
// free (NotFound), false when taken (Exists), nil when undetermined.
func (v Verdict) Available() *bool {
	var b bool
	switch v {
	case NotFound:
		b = true
	case Exists:
		b = false
	default:
		return nil
	}
	return &b
}

// Cause attributes an Unknown verdict to the failure that produced it.
type Cause string

const (
	CauseNone      Cause = ""
	CauseTransport Cause = "transport"
	CauseTimeout   Cause = "timeout"
	CauseAuth      Cause = "auth"
	CauseAmbiguous Cause = "ambiguous"
	CauseInternal  Cause = "internal"
)

// Outright reports whether the cause means the outbound call never produced
// a usable response at all.
func (c Cause) Outright() bool {
	return c == CauseTransport || c == CauseTimeout
}

// Outcome is what a probe strategy returns for one platform.
type Outcome struct {
	Verdict Verdict
	Cause   Cause
	Detail  string
	Latency time.Duration
}

func Found(detail string) Outcome { return Outcome{Verdict: Exists, Detail: detail} }
func Missing(detail string) Outcome { return Outcome{Verdict: NotFound, Detail: detail} }

// Undetermined builds an Unknown outcome. An empty cause is recorded as
// ambiguous so no Unknown is ever left unattributed.
func Undetermined(c Cause, detail string) Outcome {
	if c == CauseNone {
		c = CauseAmbiguous
	}
	return Outcome{Verdict: Unknown, Cause: c, Detail: detail}
}
