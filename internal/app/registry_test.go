package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry("test")
	require.NoError(t, r.Register("a", coretest.NewConn(), nil))

	err := r.Register("a", coretest.NewConn(), nil)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SendFIFO(t *testing.T) {
	r := NewRegistry("test")
	c := coretest.NewConn()
	require.NoError(t, r.Register("a", c, nil))

	for _, s := range []string{"1", "2", "3"} {
		require.NoError(t, r.Send("a", core.Frame(s)))
	}
	assert.Equal(t, []core.Frame{core.Frame("1"), core.Frame("2"), core.Frame("3")}, c.Frames())
}

func TestRegistry_SendErrors(t *testing.T) {
	r := NewRegistry("test")
	err := r.Send("missing", core.Frame("x"))
	assert.ErrorIs(t, err, ErrNotConnected)

	c := coretest.NewConn()
	boom := errors.New("boom")
	c.FailWith(boom)
	require.NoError(t, r.Register("a", c, nil))

	err = r.Send("a", core.Frame("x"))
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry("test")
	c := coretest.NewConn()
	calls := 0
	require.NoError(t, r.Register("a", c, func() { calls++ }))

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, 1, calls)
	assert.True(t, c.Closed())
	assert.False(t, r.Has("a"))

	assert.ErrorIs(t, r.Send("a", core.Frame("x")), ErrNotConnected)
}

func TestRegistry_UnregisterConnIgnoresStaleConnection(t *testing.T) {
	r := NewRegistry("test")
	old := coretest.NewConn()
	require.NoError(t, r.Register("a", old, nil))
	require.True(t, r.Unregister("a"))

	fresh := coretest.NewConn()
	require.NoError(t, r.Register("a", fresh, nil))

	assert.False(t, r.UnregisterConn("a", old))
	assert.True(t, r.Has("a"))
	assert.False(t, fresh.Closed())

	assert.True(t, r.UnregisterConn("a", fresh))
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry("test")
	conns := []*coretest.Conn{coretest.NewConn(), coretest.NewConn()}
	require.NoError(t, r.Register("a", conns[0], nil))
	require.NoError(t, r.Register("b", conns[1], nil))

	r.CloseAll()
	assert.Zero(t, r.Len())
	for _, c := range conns {
		assert.True(t, c.Closed())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry("test")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := core.SessionID(fmt.Sprintf("s-%d", i%10))
			_ = r.Register(sid, coretest.NewConn(), nil)
			_ = r.Send(sid, core.Frame("x"))
			r.Unregister(sid)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
