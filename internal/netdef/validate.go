package netdef

import (
	"fmt"

	"github.com/roach88/konnekt/internal/algorithms"
)

// Validation error codes.
const (
	ErrNoAlgorithms       = "E201" // a description needs at least one algorithm
	ErrDuplicateAlgorithm = "E202" // two algorithms share a name
	ErrUnknownKind        = "E203" // no factory for the kind
	ErrBadEndpoint        = "E204" // endpoint is not algorithm.connector
	ErrUndefinedAlgorithm = "E205" // endpoint or dataset names a missing algorithm
)

// ValidationError is one semantic problem in a description.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks d against the kinds in reg. It returns every problem found
// rather than stopping at the first. Connector names and types are checked
// when the network is built.
func (d *Definition) Validate(reg *algorithms.Registry) []ValidationError {
	var errs []ValidationError

	if len(d.Algorithms) == 0 {
		errs = append(errs, ValidationError{
			Field:   "algorithms",
			Message: "at least one algorithm is required",
			Code:    ErrNoAlgorithms,
		})
	}

	kinds := make(map[string]bool)
	for _, k := range reg.Kinds() {
		kinds[k] = true
	}

	declared := make(map[string]bool)
	for i, a := range d.Algorithms {
		field := fmt.Sprintf("algorithms[%d]", i)
		if declared[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate algorithm %q", a.Name),
				Code:    ErrDuplicateAlgorithm,
			})
		}
		declared[a.Name] = true

		if !kinds[a.Kind] {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown kind %q", a.Kind),
				Code:    ErrUnknownKind,
			})
		}
	}

	checkEndpoint := func(field, endpoint string) {
		alg, _, err := Endpoint(endpoint)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrBadEndpoint})
			return
		}
		if !declared[alg] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("algorithm %q is not declared", alg),
				Code:    ErrUndefinedAlgorithm,
			})
		}
	}
	for i, c := range d.Connections {
		checkEndpoint(fmt.Sprintf("connections[%d].from", i), c.From)
		checkEndpoint(fmt.Sprintf("connections[%d].to", i), c.To)
	}

	for i, ds := range d.Datasets {
		if !declared[ds.Into] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("datasets[%d].into", i),
				Message: fmt.Sprintf("algorithm %q is not declared", ds.Into),
				Code:    ErrUndefinedAlgorithm,
			})
		}
	}

	return errs
}
