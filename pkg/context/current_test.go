package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	c := NewCurrent()
	c.Set(KeyRequestID, "abc")
	c.Set("count", 3)

	assert.Equal(t, "abc", c.RequestID())

	_, ok := c.GetString("count")
	assert.False(t, ok)

	all := c.All()
	all["count"] = 4
	assert.Equal(t, 3, c.Get("count"))
}

func TestRequestID_FromContext(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))

	c := NewCurrent()
	c.Set(KeyRequestID, "req-1")
	ctx := WithCurrent(context.Background(), c)

	assert.Equal(t, "req-1", RequestID(ctx))
}
