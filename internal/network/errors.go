package network

import (
	"errors"
	"fmt"
)

// GraphError reports a rejected graph mutation. The graph is unchanged.
type GraphError struct {
	// Code identifies the error category.
	Code GraphErrorCode

	// Message is a human-readable description.
	Message string

	// Algorithm and Connector locate the offending element, when known.
	Algorithm string
	Connector string
}

// GraphErrorCode categorizes graph errors.
type GraphErrorCode string

const (
	// ErrCodeIncompatibleTypes: source and target carry different value types.
	ErrCodeIncompatibleTypes GraphErrorCode = "INCOMPATIBLE_TYPES"

	// ErrCodeUnknownConnector: no connector with that name on the algorithm.
	ErrCodeUnknownConnector GraphErrorCode = "UNKNOWN_CONNECTOR"

	// ErrCodeUnknownAlgorithm: the algorithm is not registered.
	ErrCodeUnknownAlgorithm GraphErrorCode = "UNKNOWN_ALGORITHM"

	// ErrCodeDuplicateAlgorithm: an algorithm with that name is registered.
	ErrCodeDuplicateAlgorithm GraphErrorCode = "DUPLICATE_ALGORITHM"

	// ErrCodeInvalidName: the name is empty or holds a reserved character.
	ErrCodeInvalidName GraphErrorCode = "INVALID_NAME"

	// ErrCodeCycle: the connection would close a cycle.
	ErrCodeCycle GraphErrorCode = "CYCLE"

	// ErrCodeInputConnected: the input already has an incoming connection.
	ErrCodeInputConnected GraphErrorCode = "INPUT_CONNECTED"

	// ErrCodeNoCapability: the caller holds no valid token for this network.
	ErrCodeNoCapability GraphErrorCode = "NO_CAPABILITY"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch {
	case e.Algorithm != "" && e.Connector != "":
		return fmt.Sprintf("%s: %s (algorithm=%s, connector=%s)", e.Code, e.Message, e.Algorithm, e.Connector)
	case e.Algorithm != "":
		return fmt.Sprintf("%s: %s (algorithm=%s)", e.Code, e.Message, e.Algorithm)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// HasCode reports whether err is a GraphError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code GraphErrorCode) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsCycleError returns true if err rejected a connection that closes a cycle.
func IsCycleError(err error) bool {
	return HasCode(err, ErrCodeCycle)
}

// IsIncompatibleError returns true if err rejected mismatched value types.
func IsIncompatibleError(err error) bool {
	return HasCode(err, ErrCodeIncompatibleTypes)
}

// IsCapabilityError returns true if err rejected a call made without a valid
// token.
func IsCapabilityError(err error) bool {
	return HasCode(err, ErrCodeNoCapability)
}

func errNoCapability(op string) *GraphError {
	return &GraphError{
		Code:    ErrCodeNoCapability,
		Message: op + " requires a token issued by this network's queue",
	}
}

// ErrProcessPanicked is the error reported for a Process call that panicked.
var ErrProcessPanicked = errors.New("unexpected failure during process")

// ProcessError wraps an error returned by an Algorithm's Process.
type ProcessError struct {
	Algorithm string
	Err       error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %s: %v", e.Algorithm, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
