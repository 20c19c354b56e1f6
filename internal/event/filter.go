package event

// Predicate reports whether a message should reach a handler.
type Predicate[M any] func(msg M) bool

// Filtered wraps handler so it only sees messages accepted by pred.
// Filtering happens on the delivering executor, after the bus has counted
// the delivery.
func Filtered[M any](pred Predicate[M], handler func(msg M)) func(msg M) {
	if handler == nil {
		panic(ErrNilHandler)
	}
	if pred == nil {
		return handler
	}
	return func(msg M) {
		if pred(msg) {
			handler(msg)
		}
	}
}

// All combines predicates with AND logic. No predicates accepts everything.
func All[M any](preds ...Predicate[M]) Predicate[M] {
	return func(msg M) bool {
		for _, p := range preds {
			if !p(msg) {
				return false
			}
		}
		return true
	}
}

// Any combines predicates with OR logic. No predicates accepts nothing.
func Any[M any](preds ...Predicate[M]) Predicate[M] {
	return func(msg M) bool {
		for _, p := range preds {
			if p(msg) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not[M any](pred Predicate[M]) Predicate[M] {
	return func(msg M) bool {
		return !pred(msg)
	}
}

// Equal accepts messages equal to want.
func Equal[M comparable](want M) Predicate[M] {
	return func(msg M) bool {
		return msg == want
	}
}
