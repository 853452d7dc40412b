package ir

// Changes describes one update of an observed ordered sequence as flat
// positions. Deletions index the sequence before the update; insertions and
// modifications index the sequence after it. All slices are ascending.
type Changes struct {
	Deletions     []int `json:"deletions"`
	Insertions    []int `json:"insertions"`
	Modifications []int `json:"modifications"`
}

// IsEmpty reports whether the update changed nothing.
func (c Changes) IsEmpty() bool {
	return len(c.Deletions) == 0 && len(c.Insertions) == 0 && len(c.Modifications) == 0
}

// Observer receives the notifications of one subscription, in order, from a
// single goroutine. OnInitial is delivered once, before any OnUpdate. After
// OnError the subscription delivers nothing more.
type Observer[R any] interface {
	OnInitial(records []R)
	OnUpdate(records []R, changes Changes)
	OnError(err error)
}

// Subscription is a live observation. Stop discards it; no notification is
// delivered after Stop returns, except one already executing.
type Subscription interface {
	Token() string
	Stop()
}

// ObserverFuncs adapts plain functions to Observer. Nil functions are skipped.
type ObserverFuncs[R any] struct {
	Initial func(records []R)
	Update  func(records []R, changes Changes)
	Error   func(err error)
}

// OnInitial implements Observer.
func (o ObserverFuncs[R]) OnInitial(records []R) {
	if o.Initial != nil {
		o.Initial(records)
	}
}

// OnUpdate implements Observer.
func (o ObserverFuncs[R]) OnUpdate(records []R, changes Changes) {
	if o.Update != nil {
		o.Update(records, changes)
	}
}

// OnError implements Observer.
func (o ObserverFuncs[R]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}
