package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

const (
	defaultStartDebounce = 300 * time.Millisecond
	defaultStopDebounce  = time.Second
	defaultRemoteExpiry  = 5 * time.Second
)

type debounceState int

const (
	debounceIdle debounceState = iota
	debouncePending
	debounceCooldown
)

// debouncer is a timer-based state machine: idle, pending, cooldown.
// With resetOnTrigger the pending timer restarts on every trigger and
// fires only after a quiet window; without it, triggers during pending
// collapse into the already-armed emission.
type debouncer struct {
	mu             sync.Mutex
	delay          time.Duration
	fire           func()
	resetOnTrigger bool
	state          debounceState
	timer          *time.Timer
}

func newDebouncer(delay time.Duration, resetOnTrigger bool, fire func()) *debouncer {
	return &debouncer{
		delay:          delay,
		fire:           fire,
		resetOnTrigger: resetOnTrigger,
	}
}

func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case debounceIdle:
		d.state = debouncePending
		d.timer = time.AfterFunc(d.delay, d.fired)
	case debouncePending:
		if d.resetOnTrigger {
			d.timer.Reset(d.delay)
		}
	case debounceCooldown:
		// Swallowed; the cooldown timer returns to idle.
	}
}

func (d *debouncer) fired() {
	d.mu.Lock()
	if d.state != debouncePending {
		d.mu.Unlock()
		return
	}
	d.state = debounceCooldown
	d.timer = time.AfterFunc(d.delay, d.cooled)
	d.mu.Unlock()

	d.fire()
}

func (d *debouncer) cooled() {
	d.mu.Lock()
	if d.state == debounceCooldown {
		d.state = debounceIdle
	}
	d.mu.Unlock()
}

// Flush emits immediately if an emission is pending, then returns to idle.
func (d *debouncer) Flush() {
	d.mu.Lock()
	pending := d.state == debouncePending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.state = debounceIdle
	d.mu.Unlock()

	if pending {
		d.fire()
	}
}

// Cancel drops any pending emission without firing.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.state = debounceIdle
	d.mu.Unlock()
}

// TypingCoordinator tracks per-conversation typing state. Outbound signals
// are debounced and sent best-effort over the transport; they must never
// block or delay message delivery, so send errors are discarded. Remote
// typing auto-expires to tolerate lost stop events.
type TypingCoordinator struct {
	mu        sync.Mutex
	transport Transport
	self      models.Peer

	startDebounce time.Duration
	stopDebounce  time.Duration
	remoteExpiry  time.Duration

	emitters map[models.Peer]*typingEmitter
	remote   map[models.Peer]*time.Timer
	typing   map[models.Peer]bool
	onChange []func(models.Peer)
	closed   bool
}

type typingEmitter struct {
	start *debouncer
	stop  *debouncer
}

// TypingOption tunes coordinator timing, mainly for tests.
type TypingOption func(*TypingCoordinator)

func WithTypingWindows(start, stop, expiry time.Duration) TypingOption {
	return func(t *TypingCoordinator) {
		t.startDebounce = start
		t.stopDebounce = stop
		t.remoteExpiry = expiry
	}
}

func NewTypingCoordinator(transport Transport, self models.Peer, opts ...TypingOption) *TypingCoordinator {
	t := &TypingCoordinator{
		transport:     transport,
		self:          self,
		startDebounce: defaultStartDebounce,
		stopDebounce:  defaultStopDebounce,
		remoteExpiry:  defaultRemoteExpiry,
		emitters:      make(map[models.Peer]*typingEmitter),
		remote:        make(map[models.Peer]*time.Timer),
		typing:        make(map[models.Peer]bool),
	}
	for _, opt := range opts {
		opt(t)
	}

	transport.On(models.EventTypingStart, t.handleRemoteStart)
	transport.On(models.EventTypingStop, t.handleRemoteStop)
	return t
}

func (t *TypingCoordinator) Subscribe(fn func(models.Peer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// StartTyping signals the peer that the user is composing. Emission only
// happens while the input has focus and non-blank content; rapid repeats
// inside the debounce window collapse into one frame on the wire.
func (t *TypingCoordinator) StartTyping(peer models.Peer, focused bool, content string) {
	if !focused || len(content) == 0 {
		return
	}
	t.emitterFor(peer).start.Trigger()
}

// StopTyping schedules a stop signal after the longer quiet window, so
// brief pauses do not flicker the remote indicator off.
func (t *TypingCoordinator) StopTyping(peer models.Peer) {
	t.emitterFor(peer).stop.Trigger()
}

// FlushStop fires the stop signal immediately and drops any pending start.
// Called on blur and on every successful send.
func (t *TypingCoordinator) FlushStop(peer models.Peer) {
	emitter := t.emitterFor(peer)
	emitter.start.Cancel()
	emitter.stop.Flush()
}

// IsTyping reports whether the peer is currently composing, as far as the
// last unexpired signal says.
func (t *TypingCoordinator) IsTyping(peer models.Peer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing[peer]
}

func (t *TypingCoordinator) Close() {
	t.mu.Lock()
	t.closed = true
	for _, timer := range t.remote {
		timer.Stop()
	}
	t.remote = make(map[models.Peer]*time.Timer)
	t.typing = make(map[models.Peer]bool)
	emitters := t.emitters
	t.emitters = make(map[models.Peer]*typingEmitter)
	t.mu.Unlock()

	for _, emitter := range emitters {
		emitter.start.Cancel()
		emitter.stop.Cancel()
	}
}

func (t *TypingCoordinator) emitterFor(peer models.Peer) *typingEmitter {
	t.mu.Lock()
	defer t.mu.Unlock()

	emitter, ok := t.emitters[peer]
	if !ok {
		emitter = &typingEmitter{
			start: newDebouncer(t.startDebounce, false, func() { t.emit(models.EventTypingStart, peer) }),
			stop:  newDebouncer(t.stopDebounce, true, func() { t.emit(models.EventTypingStop, peer) }),
		}
		t.emitters[peer] = emitter
	}
	return emitter
}

func (t *TypingCoordinator) emit(event string, peer models.Peer) {
	// Best effort: a dead transport just means no indicator remotely.
	_ = t.transport.Send(event, models.TypingPayload{
		RecipientID:   peer.ID,
		RecipientRole: peer.Role,
	})
}

func (t *TypingCoordinator) handleRemoteStart(payload json.RawMessage) {
	var typing models.TypingPayload
	if err := json.Unmarshal(payload, &typing); err != nil {
		return
	}
	peer := models.Peer{ID: typing.SenderID, Role: typing.SenderRole}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.typing[peer] = true
	if timer, ok := t.remote[peer]; ok {
		timer.Stop()
	}
	t.remote[peer] = time.AfterFunc(t.remoteExpiry, func() { t.expire(peer) })
	t.mu.Unlock()

	t.notify(peer)
}

func (t *TypingCoordinator) handleRemoteStop(payload json.RawMessage) {
	var typing models.TypingPayload
	if err := json.Unmarshal(payload, &typing); err != nil {
		return
	}
	t.clear(models.Peer{ID: typing.SenderID, Role: typing.SenderRole})
}

// ClearFor force-clears the indicator, e.g. when the peer's message
// arrives and composing is evidently over.
func (t *TypingCoordinator) ClearFor(peer models.Peer) {
	t.clear(peer)
}

func (t *TypingCoordinator) expire(peer models.Peer) {
	t.clear(peer)
}

func (t *TypingCoordinator) clear(peer models.Peer) {
	t.mu.Lock()
	wasTyping := t.typing[peer]
	delete(t.typing, peer)
	if timer, ok := t.remote[peer]; ok {
		timer.Stop()
		delete(t.remote, peer)
	}
	t.mu.Unlock()

	if wasTyping {
		t.notify(peer)
	}
}

func (t *TypingCoordinator) notify(peer models.Peer) {
	t.mu.Lock()
	subscribers := append([]func(models.Peer){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range subscribers {
		fn(peer)
	}
}
