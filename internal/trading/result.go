package trading

import "fmt"

// Kind classifies a trade outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindRejected
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindRejected:
		return "rejected"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Confirmation is the post-broadcast inclusion status.
type Confirmation string

const (
	ConfirmationPending   Confirmation = "pending"
	ConfirmationConfirmed Confirmation = "confirmed"
	ConfirmationUnknown   Confirmation = "unknown-timeout"
)

// RejectedReason is returned when the user has not enabled trading.
const RejectedReason = "Trading is not yet enabled. Convince me first!"

// Result is the outcome of one trade attempt. Which fields are set depends on Kind.
type Result struct {
	Kind         Kind         `json:"kind"`
	Hash         string       `json:"hash,omitempty"`
	Code         uint32       `json:"code,omitempty"`
	RawLog       string       `json:"raw_log,omitempty"`
	Confirmation Confirmation `json:"confirmation,omitempty"`
	// TxInfo is the JSON transaction fetched after the delay, empty if unavailable.
	TxInfo  string `json:"tx_info,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// MarshalText lets the kind appear by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// String renders the outcome for the user.
func (r Result) String() string {
	switch r.Kind {
	case KindSuccess:
		info := r.TxInfo
		if info == "" {
			info = "Not available yet"
		}
		return fmt.Sprintf("Transaction executed successfully!\nHash: %s\nRaw Log: %s\nTxInfo: %s", r.Hash, r.RawLog, info)
	case KindFailure:
		return fmt.Sprintf("Transaction failed with code %d.\nHash: %s\nRaw Log: %s", r.Code, r.Hash, r.RawLog)
	case KindRejected:
		return r.Reason
	default:
		return fmt.Sprintf("Error executing transaction: %s", r.Message)
	}
}
