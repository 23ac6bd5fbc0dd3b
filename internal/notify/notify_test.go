package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	nextID  uint32
	posted  []Message
	closed  []uint32
	failing bool
}

func (server *fakeServer) Notify(message Message, replacesID uint32) (uint32, error) {
	if server.failing {
		return 0, errors.New("daemon gone")
	}
	server.posted = append(server.posted, message)
	if replacesID != 0 {
		return replacesID, nil
	}
	server.nextID++
	return server.nextID, nil
}

func (server *fakeServer) CloseNotification(id uint32) error {
	server.closed = append(server.closed, id)
	return nil
}

func TestShowHideDestroy(t *testing.T) {
	server := &fakeServer{}
	source := NewSource(server, nil)
	notice := source.NewStartNotice()
	assert.Equal(t, KindStart, notice.Kind())

	destroyed := 0
	notice.OnDestroy(func() { destroyed++ })

	notice.Show()
	require.True(t, notice.Visible())
	notice.Show()
	assert.Len(t, server.posted, 2)
	assert.Empty(t, server.closed, "reshow replaces in place")

	notice.Hide()
	assert.False(t, notice.Visible())
	assert.Equal(t, []uint32{1}, server.closed)
	assert.False(t, notice.Destroyed())

	notice.Show()
	notice.Destroy()
	notice.Destroy()
	assert.True(t, notice.Destroyed())
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, []uint32{1, 2}, server.closed)
	assert.Zero(t, source.Live())

	notice.Show()
	assert.Len(t, server.posted, 3, "destroyed notices do not post")
}

func TestClickRoutedByID(t *testing.T) {
	server := &fakeServer{}
	var dispatched int
	source := NewSource(server, func(fn func()) {
		dispatched++
		fn()
	})
	end := source.NewEndNotice()
	other := source.NewStartNotice()

	clicks := 0
	end.OnClicked(func() { clicks++ })
	other.OnClicked(func() { t.Fatal("start notice must not be clicked") })
	end.Show()
	other.Show()

	source.ActionInvoked(1, DefaultAction)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 1, dispatched)

	source.ActionInvoked(99, DefaultAction)
	assert.Equal(t, 1, clicks)

	end.Hide()
	source.ActionInvoked(1, DefaultAction)
	assert.Equal(t, 1, clicks, "hidden notices ignore stale clicks")
}

func TestClosedByDaemon(t *testing.T) {
	server := &fakeServer{}
	source := NewSource(server, nil)
	expired := source.NewStartNotice()
	dismissed := source.NewEndNotice()
	expired.Show()
	dismissed.Show()

	source.NotificationClosed(1, ReasonExpired)
	assert.False(t, expired.Visible())
	assert.False(t, expired.Destroyed())

	source.NotificationClosed(2, ReasonDismissed)
	assert.True(t, dismissed.Destroyed())
	assert.Empty(t, server.closed)
}

func TestOwnCloseEchoIgnored(t *testing.T) {
	server := &fakeServer{}
	source := NewSource(server, nil)
	notice := source.NewEndNotice()
	notice.Show()
	notice.Hide()

	source.NotificationClosed(1, ReasonDismissed)
	assert.False(t, notice.Destroyed())
}

func TestSourceDestroy(t *testing.T) {
	server := &fakeServer{}
	source := NewSource(server, nil)
	first := source.NewStartNotice()
	second := source.NewIssue("settings broken")
	first.Show()

	source.Destroy()
	assert.True(t, source.Destroyed())
	assert.True(t, first.Destroyed())
	assert.True(t, second.Destroyed())
	assert.Equal(t, []uint32{1}, server.closed)

	late := source.NewEndNotice()
	late.Show()
	assert.True(t, late.Destroyed())
	assert.Len(t, server.posted, 1)
	source.Destroy()
}

func TestFailedPostStaysHidden(t *testing.T) {
	source := NewSource(&fakeServer{failing: true}, nil)
	notice := source.NewIssue("x")
	notice.Show()
	assert.False(t, notice.Visible())
}
