package transpiler

import (
	"fmt"
	"strings"
)

// ErrorList accumulates every unsupported construct the Transpiler finds
// while walking a unit, instead of aborting on the first one. Transpile
// returns the joined list as a single error once the whole unit has been
// walked, so a caller sees every problem in one pass.
type ErrorList struct {
	errs []string
}

func (el *ErrorList) add(format string, args ...interface{}) {
	el.errs = append(el.errs, fmt.Sprintf(format, args...))
}

// Err returns nil if nothing was recorded, otherwise every recorded
// message joined by newlines.
func (el *ErrorList) Err() error {
	if len(el.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(el.errs, "\n"))
}
