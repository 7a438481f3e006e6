package contacts

import "errors"

// Sentinel errors shared by the stores, the manager and the mapping layer.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidStorage     = errors.New("invalid storage")
	ErrInvalidVCard       = errors.New("invalid vcard")
	ErrValidation         = errors.New("validation error")
	ErrReadOnly           = errors.New("storage is read-only")
)
