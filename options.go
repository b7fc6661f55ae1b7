package inkstore

// StoreOption configures a Store during creation.
//
// Example:
//
//	st := inkstore.NewStore(
//		inkstore.WithHistoryDepth(200),
//		inkstore.WithDocumentMeta(meta),
//	)
type StoreOption func(*storeOptions)

type storeOptions struct {
	historyDepth int
	doc          DocumentMeta
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		historyDepth: DefaultHistoryDepth,
		doc:          DefaultDocumentMeta(),
	}
}

// WithHistoryDepth sets the maximum number of history snapshots kept.
// Values below 2 are clamped; the store always retains the current state
// and at least one undo step.
func WithHistoryDepth(depth int) StoreOption {
	return func(o *storeOptions) {
		if depth > 0 {
			o.historyDepth = depth
		}
	}
}

// WithDocumentMeta sets the initial page layout and background.
func WithDocumentMeta(doc DocumentMeta) StoreOption {
	return func(o *storeOptions) {
		o.doc = doc
	}
}
