package netdef

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaSource constrains the shape of a description. Definitions are
// closed, so unknown fields fail here before decoding.
const schemaSource = `
#Name:     =~"^[^./=\\s]+$"
#Endpoint: =~"^[^./=\\s]+\\.[^./=\\s]+$"

#Network: {
	name: #Name
	algorithms?: [...{
		name:    #Name
		kind:    string & !=""
		params?: {[string]: number | string | bool}
	}]
	connections?: [...{
		from: #Endpoint
		to:   #Endpoint
	}]
	datasets?: [...{
		path: string & !=""
		into: #Name
	}]
}
`

// SchemaError lists every schema violation found in a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("network description does not match schema: %s", strings.Join(e.Problems, "; "))
}

// checkSchema validates a generic YAML document against #Network.
func checkSchema(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	network := schema.LookupPath(cue.ParsePath("#Network"))
	v := network.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Problems: []string{err.Error()}}
	}

	problems := make([]string, 0, len(errs))
	for _, e := range errs {
		problems = append(problems, e.Error())
	}
	return &SchemaError{Problems: problems}
}
