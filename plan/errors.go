package plan

import "errors"

// ErrUnconstrainedVariable is returned, wrapped with the offending
// variable's name, when a subject variable is never reached from the
// elected root.
var ErrUnconstrainedVariable = errors.New("plan: unconstrained variable")

// ErrTooManyVariables is returned when an expression uses more variables
// than the register-index byte (with its sentinel) can address.
var ErrTooManyVariables = errors.New("plan: too many variables")

// ErrTooManyArguments names the diagnostic for a term with more than two
// arguments. No code path in this module returns it: parse.Term holds at
// most a subject and an object, so such a term cannot reach Plan.
var ErrTooManyArguments = errors.New("plan: term has more than two arguments")
