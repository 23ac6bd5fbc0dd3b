// Package notify manages the pop-up notifications of the indicator.
//
// Every notice belongs to a Source. The source talks to the notification
// daemon, routes the daemon's signals back to the notice they concern and
// runs the resulting callbacks through its dispatcher, so handlers always see
// the UI thread.
package notify

import (
	"log"
	"sync"

	"pomodoro/internal/i18n"
)

// Kind tells notices apart.
type Kind int

const (
	KindStart Kind = iota
	KindEnd
	KindIssue
)

func (kind Kind) String() string {
	switch kind {
	case KindStart:
		return "pomodoro-start"
	case KindEnd:
		return "pomodoro-end"
	case KindIssue:
		return "issue"
	default:
		return "unknown"
	}
}

// Urgency is the freedesktop notification urgency level.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// CloseReason is the reason code of a NotificationClosed signal.
type CloseReason uint32

const (
	ReasonExpired   CloseReason = 1
	ReasonDismissed CloseReason = 2
	ReasonClosed    CloseReason = 3
	ReasonUndefined CloseReason = 4
)

// DefaultAction is the action key invoked by clicking the notification body.
const DefaultAction = "default"

// Message contains data for a desktop notification.
type Message struct {
	Summary  string
	Body     string
	Icon     string
	Actions  []string // key, label pairs
	Urgency  Urgency
	Timeout  int32 // ms, -1 = server default, 0 = never expire
	Resident bool
	Category string
}

// Server is the notification daemon.
type Server interface {
	// Notify posts message, replacing replacesID when it is not zero, and returns its id.
	Notify(message Message, replacesID uint32) (uint32, error)
	CloseNotification(id uint32) error
}

// Source owns the live notices and their link to the daemon.
type Source struct {
	server   Server
	dispatch func(func())

	mu        sync.Mutex
	byID      map[uint32]*Notification
	live      map[*Notification]struct{}
	destroyed bool
}

// NewSource creates a source posting to server. dispatch runs callbacks
// triggered by daemon signals on the UI thread.
func NewSource(server Server, dispatch func(func())) *Source {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Source{
		server:   server,
		dispatch: dispatch,
		byID:     make(map[uint32]*Notification),
		live:     make(map[*Notification]struct{}),
	}
}

// NewStartNotice creates the notice shown when a pomodoro begins.
func (source *Source) NewStartNotice() *Notification {
	return source.newNotification(KindStart, Message{
		Summary:  i18n.T("Pomodoro"),
		Body:     i18n.T("Focus on your task."),
		Icon:     "gnome-pomodoro",
		Urgency:  UrgencyNormal,
		Timeout:  -1,
		Category: "presence",
	})
}

// NewEndNotice creates the notice shown when a pomodoro ends.
func (source *Source) NewEndNotice() *Notification {
	return source.newNotification(KindEnd, Message{
		Summary:  i18n.T("Take a break"),
		Body:     i18n.T("You worked hard. Stand up and stretch."),
		Icon:     "gnome-pomodoro",
		Actions:  []string{DefaultAction, i18n.T("Show break screen")},
		Urgency:  UrgencyCritical,
		Timeout:  0,
		Resident: true,
		Category: "presence",
	})
}

// NewIssue creates a notice reporting a problem with the indicator itself.
func (source *Source) NewIssue(message string) *Notification {
	return source.newNotification(KindIssue, Message{
		Summary: i18n.T("Pomodoro problem"),
		Body:    message,
		Icon:    "dialog-warning",
		Urgency: UrgencyNormal,
		Timeout: -1,
	})
}

// ActionInvoked routes an ActionInvoked signal. Safe to call from any goroutine.
func (source *Source) ActionInvoked(id uint32, actionKey string) {
	notification := source.lookup(id)
	if notification == nil {
		return
	}
	source.dispatch(func() {
		if notification.destroyed || notification.id != id {
			return
		}
		notification.emitClicked(actionKey)
	})
}

// NotificationClosed routes a NotificationClosed signal. Safe to call from any goroutine.
func (source *Source) NotificationClosed(id uint32, reason CloseReason) {
	notification := source.lookup(id)
	if notification == nil {
		return
	}
	source.dispatch(func() {
		notification.closedByServer(id, reason)
	})
}

// Destroy destroys every live notice. Notices created or shown afterwards stay silent.
func (source *Source) Destroy() {
	source.mu.Lock()
	if source.destroyed {
		source.mu.Unlock()
		return
	}
	source.destroyed = true
	live := make([]*Notification, 0, len(source.live))
	for notification := range source.live {
		live = append(live, notification)
	}
	source.mu.Unlock()

	for _, notification := range live {
		notification.Destroy()
	}
}

// Destroyed reports whether Destroy was called.
func (source *Source) Destroyed() bool {
	source.mu.Lock()
	defer source.mu.Unlock()
	return source.destroyed
}

// Live returns the number of notices not yet destroyed.
func (source *Source) Live() int {
	source.mu.Lock()
	defer source.mu.Unlock()
	return len(source.live)
}

func (source *Source) newNotification(kind Kind, message Message) *Notification {
	notification := &Notification{source: source, kind: kind, message: message}
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.destroyed {
		notification.destroyed = true
		return notification
	}
	source.live[notification] = struct{}{}
	return notification
}

func (source *Source) lookup(id uint32) *Notification {
	source.mu.Lock()
	defer source.mu.Unlock()
	return source.byID[id]
}

func (source *Source) register(id uint32, notification *Notification) bool {
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.destroyed {
		return false
	}
	source.byID[id] = notification
	return true
}

func (source *Source) unregister(id uint32) {
	source.mu.Lock()
	defer source.mu.Unlock()
	delete(source.byID, id)
}

func (source *Source) forget(notification *Notification) {
	source.mu.Lock()
	defer source.mu.Unlock()
	delete(source.live, notification)
}

func (source *Source) post(message Message, replacesID uint32) (uint32, bool) {
	source.mu.Lock()
	destroyed := source.destroyed
	source.mu.Unlock()
	if destroyed || source.server == nil {
		return 0, false
	}
	id, err := source.server.Notify(message, replacesID)
	if err != nil {
		log.Printf("notify: post %q: %v", message.Summary, err)
		return 0, false
	}
	return id, true
}

func (source *Source) withdraw(id uint32) {
	if source.server == nil {
		return
	}
	if err := source.server.CloseNotification(id); err != nil {
		log.Printf("notify: close %d: %v", id, err)
	}
}

// Notification is a single pop-up. Its methods must run on the UI thread.
type Notification struct {
	source  *Source
	kind    Kind
	message Message

	id        uint32
	destroyed bool
	onClicked []func()
	onDestroy []func()
}

// Kind returns the notice variant.
func (notification *Notification) Kind() Kind {
	return notification.kind
}

// Message returns the content posted to the daemon.
func (notification *Notification) Message() Message {
	return notification.message
}

// Visible reports whether the notice is currently posted.
func (notification *Notification) Visible() bool {
	return notification.id != 0
}

// Destroyed reports whether the notice was destroyed.
func (notification *Notification) Destroyed() bool {
	return notification.destroyed
}

// OnClicked registers a handler for clicks on the notice or its actions.
func (notification *Notification) OnClicked(handler func()) {
	notification.onClicked = append(notification.onClicked, handler)
}

// OnDestroy registers a handler run once when the notice is destroyed.
func (notification *Notification) OnDestroy(handler func()) {
	notification.onDestroy = append(notification.onDestroy, handler)
}

// Show posts the notice, replacing its previous pop-up if still up.
func (notification *Notification) Show() {
	if notification.destroyed {
		return
	}
	previous := notification.id
	id, ok := notification.source.post(notification.message, previous)
	if !ok {
		return
	}
	if previous != 0 && previous != id {
		notification.source.unregister(previous)
	}
	if !notification.source.register(id, notification) {
		notification.source.withdraw(id)
		return
	}
	notification.id = id
}

// Hide withdraws the pop-up and keeps the notice alive.
func (notification *Notification) Hide() {
	if notification.id == 0 {
		return
	}
	id := notification.id
	notification.id = 0
	// Unregister first so the daemon's echo of our own close is ignored.
	notification.source.unregister(id)
	notification.source.withdraw(id)
}

// Destroy withdraws the pop-up and notifies destroy handlers once.
func (notification *Notification) Destroy() {
	if notification.destroyed {
		return
	}
	notification.destroyed = true
	notification.Hide()
	notification.source.forget(notification)

	handlers := notification.onDestroy
	notification.onDestroy = nil
	notification.onClicked = nil
	for _, handler := range handlers {
		handler()
	}
}

func (notification *Notification) emitClicked(actionKey string) {
	if len(notification.message.Actions) == 0 && actionKey != DefaultAction {
		return
	}
	for _, handler := range append([]func(){}, notification.onClicked...) {
		handler()
	}
}

func (notification *Notification) closedByServer(id uint32, reason CloseReason) {
	if notification.destroyed || notification.id != id {
		return
	}
	notification.id = 0
	notification.source.unregister(id)
	if reason == ReasonDismissed {
		notification.Destroy()
	}
}
