package doses

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMedicine    = errors.New("unknown medicine")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrRescueCooldown     = errors.New("rescue medicine still cooling down")
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
)

// MalformedTimestampError describe un evento persistido cuya fecha/hora no se pudo leer.
type MalformedTimestampError struct {
	Medicine string
	Raw      string
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("malformed timestamp %q for %s", e.Raw, e.Medicine)
}

func (e *MalformedTimestampError) Is(target error) bool {
	return target == ErrMalformedTimestamp
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
