package store

// changeKind distinguishes notifier work items.
type changeKind int

const (
	// changeCollection announces a committed write to a collection.
	changeCollection changeKind = iota + 1
	// changeSubscribe asks for a subscription's initial delivery.
	changeSubscribe
	// changeBarrier is closed once everything queued before it is delivered.
	changeBarrier
)

// change is one notifier work item.
type change struct {
	kind       changeKind
	collection string        // changeCollection
	token      string        // changeSubscribe
	barrier    chan struct{} // changeBarrier
}
