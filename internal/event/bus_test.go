package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	var b Bus[string]
	var got []string

	stopA := b.Subscribe(func(s string) { got = append(got, "a:"+s) })
	b.Subscribe(func(s string) { got = append(got, "b:"+s) })

	b.Publish("x")
	stopA()
	stopA()
	b.Publish("y")

	assert.Equal(t, []string{"a:x", "b:x", "b:y"}, got)
	assert.Equal(t, 1, b.Len())
}

func TestSubscribeDuringPublishSeesNextEvent(t *testing.T) {
	var b Bus[int]
	var late []int
	b.Subscribe(func(int) {
		if b.Len() == 1 {
			b.Subscribe(func(v int) { late = append(late, v) })
		}
	})

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, []int{2}, late)
}
