// Provides common taskstore errors definitions.
package taskstore_errors

import "errors"

var (
	ErrBadRecordKey  = errors.New("taskstore: malformed record key for its kind")
	ErrReleasedGuard = errors.New("taskstore: use of a released write guard")
	ErrCellEmpty     = errors.New("taskstore: cell has no content and no computation in flight")
)
