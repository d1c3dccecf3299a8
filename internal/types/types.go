// Package types provides common type definitions for the copy-trading backend.
package types

// TradeSide represents the direction of a trade
type TradeSide string

const (
	// SideBuy represents a long position
	SideBuy TradeSide = "buy"
	// SideSell represents a short position
	SideSell TradeSide = "sell"
)

// Valid reports whether the side is a known value
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	// StatusOpen represents an active position
	StatusOpen TradeStatus = "open"
	// StatusClosed represents a settled position; closed is terminal
	StatusClosed TradeStatus = "closed"
)

// Valid reports whether the status is a known value
func (s TradeStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// AssetClass represents the market segment of a tradable asset
type AssetClass string

const (
	// ClassCrypto represents cryptocurrency pairs (e.g. BTC/USD)
	ClassCrypto AssetClass = "crypto"
	// ClassForex represents currency pairs (e.g. EUR/USD)
	ClassForex AssetClass = "forex"
	// ClassStock represents equities (e.g. AAPL)
	ClassStock AssetClass = "stock"
)

// Valid reports whether the asset class is a known value
func (c AssetClass) Valid() bool {
	return c == ClassCrypto || c == ClassForex || c == ClassStock
}

// OTPPurpose distinguishes the two one-time-password flows
type OTPPurpose string

const (
	// PurposeActivation covers email verification at signup
	PurposeActivation OTPPurpose = "activation"
	// PurposePasswordReset covers the password reset flow
	PurposePasswordReset OTPPurpose = "password_reset"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// IsServiceErrorCode reports whether err is a ServiceError with the given code
func IsServiceErrorCode(err error, code string) bool {
	svcErr, ok := err.(*ServiceError)
	return ok && svcErr.Code == code
}
