package sentoutput

import "errors"

// ErrCorruptRecord is returned when a persisted sent-output record cannot be
// decoded, matching internal/scanner's treatment of its own persisted state.
var ErrCorruptRecord = errors.New("sentoutput: corrupt persisted record")
