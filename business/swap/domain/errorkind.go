package domain

import "strings"

// ErrorKind is the closed taxonomy of estimator failure reasons.
// Every venue-level failure is normalized into one of these; nothing
// else crosses the estimator boundary.
type ErrorKind string

const (
	// ErrNone means no error.
	ErrNone ErrorKind = ""

	// ErrUnsupported means the venue cannot serve this token pair/mode.
	ErrUnsupported ErrorKind = "unsupported"

	// ErrNotEnoughFundsContract means venue-side liquidity is insufficient.
	ErrNotEnoughFundsContract ErrorKind = "not_enough_funds_contract"

	// ErrNotEnoughFundsUser means the wallet balance is insufficient.
	ErrNotEnoughFundsUser ErrorKind = "not_enough_funds_user"

	// ErrAmountTooHigh means the amount exceeds a venue-specific ceiling.
	ErrAmountTooHigh ErrorKind = "amount_too_high"

	// ErrLiquidity means the underlying strategy/pool lacks liquidity.
	ErrLiquidity ErrorKind = "liquidity_error"

	// ErrPriceTooHigh means the implied price breaches the sanity ceiling.
	ErrPriceTooHigh ErrorKind = "price_too_high"

	// ErrUnexpected is any unrecognized failure.
	ErrUnexpected ErrorKind = "unexpected_error"
)

// revertPatterns maps lower-cased revert substring patterns to kinds.
// Order matters: first match wins.
var revertPatterns = []struct {
	substr string
	kind   ErrorKind
}{
	{"transfer amount exceeds balance", ErrNotEnoughFundsUser},
	{"insufficient funds", ErrNotEnoughFundsUser},
	{"burn amount exceeds balance", ErrNotEnoughFundsUser},
	{"exceeds balance", ErrNotEnoughFundsUser},
	{"insufficient output amount", ErrNotEnoughFundsContract},
	{"exchange resulted in fewer coins", ErrNotEnoughFundsContract},
	{"insufficient reserves", ErrNotEnoughFundsContract},
	{"mint amount greater than max", ErrAmountTooHigh},
	{"amount too high", ErrAmountTooHigh},
	{"redeem amount lower than minimum", ErrLiquidity},
	{"liquidity", ErrLiquidity},
	{"stf", ErrNotEnoughFundsUser}, // uniswap v3 safe-transfer-from shorthand
}

// ClassifyRevert maps a venue error into the closed taxonomy.
// Unmatched patterns become ErrUnexpected.
func ClassifyRevert(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	msg := strings.ToLower(err.Error())
	for _, p := range revertPatterns {
		if strings.Contains(msg, p.substr) {
			return p.kind
		}
	}
	return ErrUnexpected
}

// Message returns a user-facing description of the kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrUnsupported:
		return "This venue cannot serve the selected swap"
	case ErrNotEnoughFundsContract:
		return "Venue liquidity is insufficient for this amount"
	case ErrNotEnoughFundsUser:
		return "Wallet balance is insufficient"
	case ErrAmountTooHigh:
		return "Amount exceeds the venue ceiling"
	case ErrLiquidity:
		return "Underlying liquidity cannot honor this redeem"
	case ErrPriceTooHigh:
		return "Quoted price is outside the acceptable range"
	case ErrUnexpected:
		return "Unexpected error while estimating"
	default:
		return ""
	}
}
