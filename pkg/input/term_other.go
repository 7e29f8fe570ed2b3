//go:build !unix

package input

import "errors"

var ErrNoTerminal = errors.New("terminal input is not supported here")

type TermSource struct{ *State }

func NewTermSource(*State) (*TermSource, error) { return nil, ErrNoTerminal }
