package fuzzing

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/compilation/abiutils"
)

// CallSpec describes one generated call: a contract method and one concrete argument value per declared input.
// A CallSpec is produced fresh for every episode.
type CallSpec struct {
	// Method is the contract method being called.
	Method *abi.Method

	// Args holds one value per input of Method, in declaration order.
	Args []any
}

// Pack encodes the call as calldata: the method selector followed by the ABI-encoded arguments.
func (c *CallSpec) Pack() ([]byte, error) {
	packed, err := c.Method.Inputs.Pack(c.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode arguments of '%s'", c.Method.Name)
	}
	return append(append([]byte{}, c.Method.ID...), packed...), nil
}

// FormattedArgs renders every argument for display.
func (c *CallSpec) FormattedArgs() []string {
	rendered := make([]string, len(c.Args))
	for i, arg := range c.Args {
		rendered[i] = abiutils.FormatValue(arg)
	}
	return rendered
}

// String returns a string representation of the call, e.g. `stake(100)`.
func (c *CallSpec) String() string {
	return fmt.Sprintf("%s(%s)", c.Method.Name, strings.Join(c.FormattedArgs(), ", "))
}
