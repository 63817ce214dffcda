package world

import "errors"

var (
	ErrEntityExists     = errors.New("entity already exists")
	ErrControllerExists = errors.New("controller already exists")
)
