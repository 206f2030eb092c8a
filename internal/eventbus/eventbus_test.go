package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ N int }
type pong struct{ N int }

func TestDispatchByType(t *testing.T) {
	b := New()
	var pings, pongs []int
	On(b, func(_ context.Context, e ping) { pings = append(pings, e.N) })
	On(b, func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	Emit(context.Background(), b, ping{1})
	Emit(context.Background(), b, pong{2})
	Emit(context.Background(), b, ping{3})

	assert.Equal(t, []int{1, 3}, pings)
	assert.Equal(t, []int{2}, pongs)
}

func TestUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	b := New()
	var got []string
	handler := func(name string) Handler[ping] {
		return func(context.Context, ping) { got = append(got, name) }
	}
	unsubA := On(b, handler("a"))
	On(b, handler("b"))

	unsubA()
	unsubA()
	Emit(context.Background(), b, ping{})
	assert.Equal(t, []string{"b"}, got)
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	Use(nil)
	unsub := Subscribe(func(context.Context, ping) { t.Error("no bus installed") })
	Publish(context.Background(), ping{})
	unsub()

	Use(New())
	var n int
	unsub = Subscribe(func(_ context.Context, e ping) { n += e.N })
	Publish(context.Background(), ping{N: 2})
	unsub()
	Publish(context.Background(), ping{N: 5})
	assert.Equal(t, 2, n)
}

func TestNilBus(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() {
		On(b, func(context.Context, ping) {})()
		Emit(context.Background(), b, ping{})
	})
}
