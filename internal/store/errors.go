package store

import "errors"

var (
	// ErrDecrypt means the store blob could not be read with the supplied
	// key: the key is wrong, or the blob is corrupt or truncated. Fatal at
	// startup; there is no safe default document to fall back to.
	ErrDecrypt = errors.New("record store unreadable: bad key or corrupt blob")

	// ErrConflict means the persisted document changed between load and
	// save (another writer got there first). The caller may retry.
	ErrConflict = errors.New("record store changed since load")

	// ErrBusy means the write lock could not be acquired within the
	// configured timeout.
	ErrBusy = errors.New("record store write lock timed out")
)
