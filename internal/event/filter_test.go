package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltered(t *testing.T) {
	b := NewBus("filter")
	num := NewEvent[int]("num")

	even := Predicate[int](func(n int) bool { return n%2 == 0 })
	positive := Predicate[int](func(n int) bool { return n > 0 })

	tests := []struct {
		name string
		pred Predicate[int]
		want []int
	}{
		{name: "nil accepts all", pred: nil, want: []int{-2, -1, 0, 1, 2, 3}},
		{name: "even", pred: even, want: []int{-2, 0, 2}},
		{name: "all", pred: All(even, positive), want: []int{2}},
		{name: "any", pred: Any(even, positive), want: []int{-2, 0, 1, 2, 3}},
		{name: "not", pred: Not(even), want: []int{-1, 1, 3}},
		{name: "equal", pred: Equal(3), want: []int{3}},
		{name: "empty all", pred: All[int](), want: []int{-2, -1, 0, 1, 2, 3}},
		{name: "empty any", pred: Any[int](), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder[int]
			sub := num.Subscribe(b, Filtered(tt.pred, rec.add))
			defer sub.Unsubscribe()

			for _, n := range []int{-2, -1, 0, 1, 2, 3} {
				num.Publish(b, n)
			}
			assert.Equal(t, tt.want, rec.values())
		})
	}
}

func TestFiltered_NilHandlerPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilHandler, func() {
		Filtered[int](Equal(1), nil)
	})
}
