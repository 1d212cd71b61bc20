// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/webeid/lib/channel"
	"github.com/bureau-foundation/webeid/lib/channel/channeltest"
	"github.com/bureau-foundation/webeid/lib/clock"
	"github.com/bureau-foundation/webeid/lib/eiderr"
	"github.com/bureau-foundation/webeid/lib/protocol"
	"github.com/bureau-foundation/webeid/lib/testutil"
)

const secureOrigin = "https://rp.example.org"

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// recordingChannel records posts and lets the test deliver replies
// synchronously through the subscribed handler.
type recordingChannel struct {
	origin  string
	postErr error

	mu      sync.Mutex
	posted  []protocol.Message
	handler func(protocol.Message)
}

func (c *recordingChannel) Post(_ context.Context, message protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postErr != nil {
		return c.postErr
	}
	c.posted = append(c.posted, message)
	return nil
}

func (c *recordingChannel) Subscribe(handler func(protocol.Message)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.handler = nil
	}
}

func (c *recordingChannel) Origin() string { return c.origin }

func (c *recordingChannel) deliver(message protocol.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(message)
	}
}

func (c *recordingChannel) postCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.posted)
}

type harness struct {
	engine  *Engine
	channel *recordingChannel
	clock   *clock.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ch := &recordingChannel{origin: secureOrigin}
	fake := clock.Fake(epoch)
	engine, err := New(Config{Channel: ch, Clock: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return &harness{engine: engine, channel: ch, clock: fake}
}

func (h *harness) send(t *testing.T, action protocol.Action, replyTimeout time.Duration) *Exchange {
	t.Helper()
	x, err := h.engine.Send(context.Background(), protocol.NewRequest(action, nil), replyTimeout)
	if err != nil {
		t.Fatalf("Send(%s): %v", action, err)
	}
	return x
}

func requireSettled(t *testing.T, x *Exchange) (protocol.Message, error) {
	t.Helper()
	select {
	case <-x.Done():
	default:
		t.Fatalf("exchange %s not settled (state %s)", x.Action(), x.State())
	}
	return x.Wait(context.Background())
}

func requireNotSettled(t *testing.T, x *Exchange) {
	t.Helper()
	select {
	case <-x.Done():
		_, err := x.Wait(context.Background())
		t.Fatalf("exchange %s settled early: %v", x.Action(), err)
	default:
	}
}

func requireCode(t *testing.T, err error, code eiderr.Code) *eiderr.Error {
	t.Helper()
	var eidErr *eiderr.Error
	if !errors.As(err, &eidErr) {
		t.Fatalf("error = %v (%T), want *eiderr.Error with code %s", err, err, code)
	}
	if eidErr.Code != code {
		t.Fatalf("error code = %s, want %s (message %q)", eidErr.Code, code, eidErr.Message)
	}
	return eidErr
}

func TestSendPostsAndArmsBothDeadlines(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 5*time.Second)

	if h.channel.postCount() != 1 {
		t.Fatalf("posted %d messages, want 1", h.channel.postCount())
	}
	if got := h.clock.PendingCount(); got != 2 {
		t.Fatalf("armed timers = %d, want 2", got)
	}
	if x.State() != StatePending {
		t.Errorf("state = %s, want pending", x.State())
	}
	if h.engine.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", h.engine.Pending())
	}
	if x.Message().Action != protocol.ActionStatus {
		t.Errorf("Message().Action = %s", x.Message().Action)
	}
}

func TestSecondSendForSameActionIsRejected(t *testing.T) {
	h := newHarness(t)
	first := h.send(t, protocol.ActionSign, 10*time.Second)

	second, err := h.engine.Send(context.Background(), protocol.NewRequest(protocol.ActionSign, nil), 10*time.Second)
	if second != nil {
		t.Fatal("rejected Send returned an exchange")
	}
	requireCode(t, err, eiderr.CodeActionPending)

	if h.channel.postCount() != 1 {
		t.Errorf("posted %d messages, want 1 (rejected send must not post)", h.channel.postCount())
	}
	if got := h.clock.PendingCount(); got != 2 {
		t.Errorf("armed timers = %d, want 2 (rejected send must not arm)", got)
	}

	// The first exchange still completes normally.
	h.channel.deliver(first.Message().Reply(protocol.PhaseAck, nil))
	h.channel.deliver(first.Message().Reply(protocol.PhaseSuccess, map[string]any{"response": "signed"}))
	reply, err := requireSettled(t, first)
	if err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	if value, _ := reply.String("response"); value != "signed" {
		t.Errorf("response = %q", value)
	}
}

func TestDifferentActionsRunConcurrently(t *testing.T) {
	h := newHarness(t)
	status := h.send(t, protocol.ActionStatus, 5*time.Second)
	sign := h.send(t, protocol.ActionSign, 5*time.Second)

	h.channel.deliver(sign.Message().Reply(protocol.PhaseSuccess, nil))
	requireSettled(t, sign)
	requireNotSettled(t, status)

	// The action is free again once settled.
	h.send(t, protocol.ActionSign, 5*time.Second)
}

func TestInsecureContextRejectedBeforeAnything(t *testing.T) {
	ch := &recordingChannel{origin: "http://rp.example.org"}
	fake := clock.Fake(epoch)
	engine, err := New(Config{Channel: ch, Clock: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close()

	x, err := engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), time.Second)
	if x != nil {
		t.Fatal("rejected Send returned an exchange")
	}
	eidErr := requireCode(t, err, eiderr.CodeContextInsecure)
	if origin, _ := eidErr.Get("origin"); origin != "http://rp.example.org" {
		t.Errorf("origin extra = %v", origin)
	}
	if ch.postCount() != 0 || fake.PendingCount() != 0 || engine.Pending() != 0 {
		t.Errorf("insecure send had side effects: posts=%d timers=%d pending=%d",
			ch.postCount(), fake.PendingCount(), engine.Pending())
	}
}

func TestSendRejectsNonPositiveReplyTimeout(t *testing.T) {
	h := newHarness(t)
	for _, timeout := range []time.Duration{0, -time.Second} {
		_, err := h.engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), timeout)
		requireCode(t, err, eiderr.CodeMissingParameter)
	}
	if h.channel.postCount() != 0 {
		t.Errorf("posted %d messages", h.channel.postCount())
	}
}

func TestSendRejectsReplies(t *testing.T) {
	h := newHarness(t)
	request := protocol.NewRequest(protocol.ActionStatus, nil)
	_, err := h.engine.Send(context.Background(), request.Reply(protocol.PhaseAck, nil), time.Second)
	if !errors.Is(err, ErrNotRequest) {
		t.Fatalf("Send(ack) = %v, want ErrNotRequest", err)
	}
}

func TestAckTimeoutSettlesAsExtensionUnavailable(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 6*time.Second)

	h.clock.Advance(DefaultHandshakeTimeout - time.Millisecond)
	requireNotSettled(t, x)

	h.clock.Advance(time.Millisecond)
	_, err := requireSettled(t, x)
	requireCode(t, err, eiderr.CodeExtensionUnavailable)

	if got := h.clock.PendingCount(); got != 0 {
		t.Fatalf("armed timers after handshake timeout = %d, want 0 (reply timer must be stopped)", got)
	}
	if h.engine.Pending() != 0 {
		t.Fatalf("exchange still registered after handshake timeout")
	}

	// The reply deadline passing later changes nothing.
	h.clock.Advance(time.Minute)
	_, err = x.Wait(context.Background())
	requireCode(t, err, eiderr.CodeExtensionUnavailable)
	if x.State() != StateSettled {
		t.Errorf("state = %s, want settled", x.State())
	}
}

func TestAckThenReplyTimeoutSettlesAsActionTimeout(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionAuthenticate, 10*time.Second)

	h.channel.deliver(x.Message().Reply(protocol.PhaseAck, nil))
	if x.State() != StateAcked {
		t.Fatalf("state after ack = %s, want acked", x.State())
	}
	if got := h.clock.PendingCount(); got != 1 {
		t.Fatalf("armed timers after ack = %d, want 1", got)
	}

	// Past the handshake deadline: the ack disarmed it.
	h.clock.Advance(5 * time.Second)
	requireNotSettled(t, x)

	h.clock.Advance(5 * time.Second)
	_, err := requireSettled(t, x)
	requireCode(t, err, eiderr.CodeActionTimeout)
	if h.engine.Pending() != 0 {
		t.Fatal("exchange still registered after reply timeout")
	}
}

func TestReplyTimeoutShorterThanHandshake(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 500*time.Millisecond)

	h.clock.Advance(500 * time.Millisecond)
	_, err := requireSettled(t, x)
	requireCode(t, err, eiderr.CodeActionTimeout)

	if got := h.clock.PendingCount(); got != 0 {
		t.Fatalf("armed timers = %d, want 0", got)
	}
}

func TestSecondAckIsIgnored(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionSign, 10*time.Second)

	ack := x.Message().Reply(protocol.PhaseAck, nil)
	h.channel.deliver(ack)
	h.channel.deliver(ack)

	if x.State() != StateAcked {
		t.Fatalf("state = %s, want acked", x.State())
	}
	if got := h.clock.PendingCount(); got != 1 {
		t.Fatalf("armed timers = %d, want 1 (no re-arm)", got)
	}
}

func TestSuccessWithoutAck(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 5*time.Second)

	h.channel.deliver(x.Message().Reply(protocol.PhaseSuccess, map[string]any{"extension": "1.0.0"}))
	reply, err := requireSettled(t, x)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if reply.Phase != protocol.PhaseSuccess {
		t.Errorf("reply phase = %s", reply.Phase)
	}
	if got := h.clock.PendingCount(); got != 0 {
		t.Fatalf("armed timers after success = %d, want 0", got)
	}

	h.clock.Advance(time.Hour)
	reply, err = x.Wait(context.Background())
	if err != nil || reply.Phase != protocol.PhaseSuccess {
		t.Fatalf("result changed after deadlines passed: %v, %v", reply.Phase, err)
	}
}

func TestFailureDeserializesErrorObject(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionSign, 5*time.Second)

	h.channel.deliver(x.Message().Fail(map[string]any{
		"code":    "ERR_WEBEID_USER_CANCELLED",
		"message": "user pressed cancel",
		"foo":     "bar",
	}))

	_, err := requireSettled(t, x)
	eidErr := requireCode(t, err, eiderr.CodeUserCancelled)
	if eidErr.Message != "user pressed cancel" {
		t.Errorf("message = %q", eidErr.Message)
	}
	if foo, _ := eidErr.Get("foo"); foo != "bar" {
		t.Errorf("foo = %v, want bar", foo)
	}
}

func TestFailureWithoutErrorObject(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionAuthenticate, 5*time.Second)

	failure := x.Message().Reply(protocol.PhaseFailure, map[string]any{"error": "plain text", "detail": 7})
	h.channel.deliver(failure)

	_, err := requireSettled(t, x)
	eidErr := requireCode(t, err, eiderr.CodeUnknownError)
	if value, _ := eidErr.Get("error"); value != "plain text" {
		t.Errorf("error extra = %v", value)
	}
	if value, _ := eidErr.Get("detail"); value != 7 {
		t.Errorf("detail extra = %v", value)
	}
	if value, _ := eidErr.Get("action"); value != "web-eid:authenticate-failure" {
		t.Errorf("action extra = %v", value)
	}
}

func TestRepliesWithoutPendingExchangeAreIgnored(t *testing.T) {
	h := newHarness(t)
	request := protocol.NewRequest(protocol.ActionSign, nil)

	// Nothing in flight.
	h.channel.deliver(request.Reply(protocol.PhaseSuccess, nil))
	h.channel.deliver(request.Fail(map[string]any{"code": "ERR_WEBEID_NATIVE_FATAL"}))
	h.channel.deliver(request.Reply(protocol.PhaseAck, nil))
	if h.engine.Pending() != 0 {
		t.Fatal("unsolicited reply created an exchange")
	}

	// Late reply after settlement.
	x := h.send(t, protocol.ActionSign, 5*time.Second)
	h.channel.deliver(x.Message().Reply(protocol.PhaseSuccess, map[string]any{"n": 1}))
	h.channel.deliver(x.Message().Reply(protocol.PhaseSuccess, map[string]any{"n": 2}))
	h.channel.deliver(x.Message().Fail(map[string]any{"code": "ERR_WEBEID_NATIVE_FATAL"}))

	reply, err := requireSettled(t, x)
	if err != nil {
		t.Fatalf("late failure overrode success: %v", err)
	}
	if n, _ := reply.Field("n"); n != 1 {
		t.Errorf("late success overrode first: n = %v", n)
	}
}

func TestRepliesForOtherActionsDoNotCrossOver(t *testing.T) {
	h := newHarness(t)
	status := h.send(t, protocol.ActionStatus, 5*time.Second)

	h.channel.deliver(protocol.NewRequest(protocol.ActionSign, nil).Reply(protocol.PhaseSuccess, nil))
	requireNotSettled(t, status)
}

func TestRequestEchoIsIgnored(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 5*time.Second)
	h.channel.deliver(x.Message())
	requireNotSettled(t, x)
	if x.State() != StatePending {
		t.Errorf("state = %s, want pending", x.State())
	}
}

func TestPostFailureSettlesAsExtensionUnavailable(t *testing.T) {
	h := newHarness(t)
	h.channel.postErr = errors.New("pipe closed")

	x, err := h.engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), 5*time.Second)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, err = requireSettled(t, x)
	eidErr := requireCode(t, err, eiderr.CodeExtensionUnavailable)
	if cause, _ := eidErr.Get("cause"); cause != "pipe closed" {
		t.Errorf("cause = %v", cause)
	}
	if h.clock.PendingCount() != 0 || h.engine.Pending() != 0 {
		t.Errorf("post failure left timers=%d pending=%d", h.clock.PendingCount(), h.engine.Pending())
	}
}

func TestWaitHonorsContextWithoutCancellingExchange(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := x.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait = %v, want context.Canceled", err)
	}
	requireNotSettled(t, x)

	h.channel.deliver(x.Message().Reply(protocol.PhaseSuccess, nil))
	if _, err := requireSettled(t, x); err != nil {
		t.Fatalf("Wait after abandoned wait: %v", err)
	}
}

func TestCloseSettlesOutstandingExchanges(t *testing.T) {
	h := newHarness(t)
	status := h.send(t, protocol.ActionStatus, 5*time.Second)
	sign := h.send(t, protocol.ActionSign, 5*time.Second)

	if err := h.engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, x := range []*Exchange{status, sign} {
		_, err := requireSettled(t, x)
		requireCode(t, err, eiderr.CodeExtensionUnavailable)
	}
	if h.clock.PendingCount() != 0 {
		t.Errorf("armed timers after Close = %d", h.clock.PendingCount())
	}

	_, err := h.engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), time.Second)
	requireCode(t, err, eiderr.CodeExtensionUnavailable)

	if err := h.engine.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCustomHandshakeTimeout(t *testing.T) {
	ch := &recordingChannel{origin: secureOrigin}
	fake := clock.Fake(epoch)
	engine, err := New(Config{Channel: ch, Clock: fake, HandshakeTimeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close()

	x, err := engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), time.Minute)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	fake.Advance(2 * time.Second)
	requireNotSettled(t, x)
	fake.Advance(time.Second)
	_, err = requireSettled(t, x)
	requireCode(t, err, eiderr.CodeExtensionUnavailable)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without channel succeeded")
	}
	if _, err := New(Config{Channel: &recordingChannel{}, HandshakeTimeout: -time.Second}); err == nil {
		t.Error("New with negative handshake timeout succeeded")
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StatePending: "pending",
		StateAcked:   "acked",
		StateSettled: "settled",
		State(9):     "invalid",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

// With nobody listening on a real bus, a status request fails on the
// handshake deadline, not the longer reply deadline.
func TestNoResponderFailsWithinHandshake(t *testing.T) {
	for _, replyTimeout := range []time.Duration{1000 * time.Millisecond, 6 * time.Second} {
		t.Run(replyTimeout.String(), func(t *testing.T) {
			bus := channel.NewBus(secureOrigin)
			defer bus.Close()
			fake := clock.Fake(epoch)
			engine, err := New(Config{Channel: bus, Clock: fake})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer engine.Close()

			x, err := engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), replyTimeout)
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			fake.Advance(DefaultHandshakeTimeout)

			testutil.RequireClosed(t, x.Done(), 5*time.Second, "exchange settled")
			_, err = x.Wait(context.Background())
			requireCode(t, err, eiderr.CodeExtensionUnavailable)
		})
	}
}

// When both deadlines coincide, the reply timer may win the lock. The
// unacknowledged exchange still reports a missing extension.
func TestReplyTimerFiringFirstAtHandshakeDeadline(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, DefaultHandshakeTimeout)

	h.engine.onReplyTimeout(x)
	_, err := requireSettled(t, x)
	requireCode(t, err, eiderr.CodeExtensionUnavailable)

	h.engine.onAckTimeout(x)
	_, err = x.Wait(context.Background())
	requireCode(t, err, eiderr.CodeExtensionUnavailable)
}

// An acknowledged exchange is never reported as a missing extension,
// even if its reply deadline equals the handshake deadline.
func TestReplyEqualToHandshakeAfterAck(t *testing.T) {
	h := newHarness(t)
	x := h.send(t, protocol.ActionStatus, DefaultHandshakeTimeout)
	h.channel.deliver(x.Message().Reply(protocol.PhaseAck, nil))

	h.clock.Advance(DefaultHandshakeTimeout)
	_, err := requireSettled(t, x)
	requireCode(t, err, eiderr.CodeActionTimeout)
}

// On the real clock the two timers run on separate goroutines and race.
// Every unanswered request with reply == handshake must still settle as
// a missing extension.
func TestNoResponderRealClockReplyEqualsHandshake(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the real handshake deadline")
	}
	bus := channel.NewBus(secureOrigin)
	defer bus.Close()

	const engines = 200
	exchanges := make([]*Exchange, 0, engines)
	for i := 0; i < engines; i++ {
		engine, err := New(Config{Channel: bus})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer engine.Close()
		x, err := engine.Send(context.Background(), protocol.NewRequest(protocol.ActionStatus, nil), 1000*time.Millisecond)
		if err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
		exchanges = append(exchanges, x)
	}

	for i, x := range exchanges {
		testutil.RequireClosed(t, x.Done(), 10*time.Second, "exchange %d settled", i)
		_, err := x.Wait(context.Background())
		requireCode(t, err, eiderr.CodeExtensionUnavailable)
	}
}

func TestBusRoundTripWithResponder(t *testing.T) {
	bus := channel.NewBus(secureOrigin)
	defer bus.Close()
	responder := channeltest.NewResponder(bus)
	defer responder.Close()
	responder.Handle(protocol.ActionAuthenticate, channeltest.Reply(
		channeltest.Ack(),
		channeltest.Success(map[string]any{"response": map[string]any{"token": "abc"}}),
	))

	engine, err := New(Config{Channel: bus, Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close()

	challenge := testutil.UniqueID("https://rp.example.org/challenge")
	x, err := engine.Send(context.Background(), protocol.NewRequest(protocol.ActionAuthenticate, map[string]any{
		"getAuthChallengeUrl": challenge,
	}), time.Minute)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	testutil.RequireClosed(t, x.Done(), 5*time.Second, "exchange settled")
	reply, err := x.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	response, _ := reply.Fields["response"].(map[string]any)
	if response["token"] != "abc" {
		t.Errorf("response = %v", reply.Fields["response"])
	}

	request := testutil.RequireReceive(t, responder.Received(), 5*time.Second, "responder saw request")
	if url, _ := request.String("getAuthChallengeUrl"); url != challenge {
		t.Errorf("responder saw getAuthChallengeUrl %q, want %q", url, challenge)
	}
}
