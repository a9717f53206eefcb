package dom

import "errors"

// ErrNoMatch indicates that a selector matched no element.
var ErrNoMatch = errors.New("no element matches selector")
