package inkstore

import "errors"

var (
	// ErrInvalidHandle indicates a stale or absent stroke handle. The handle
	// either was never issued by this store, or its stroke has been removed
	// and the slot's generation has moved on. Callers should drop the handle
	// and re-query; operating on a stale handle is a logic bug upstream and
	// is therefore reported explicitly rather than treated as a no-op.
	ErrInvalidHandle = errors.New("inkstore: invalid stroke handle")

	// ErrCorruptSnapshot indicates a history snapshot that fails its
	// integrity checks. The snapshot is refused and the current document
	// state is left untouched; other snapshots remain usable.
	ErrCorruptSnapshot = errors.New("inkstore: corrupt history snapshot")

	// ErrStaleRender indicates a render result older than the last installed
	// one for the same stroke and zoom. The result is discarded.
	ErrStaleRender = errors.New("inkstore: stale render result")
)
