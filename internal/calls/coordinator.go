package calls

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"temandifa-backend/internal/events"

	"github.com/google/uuid"
)

// uidAttempts bounds participant UID regeneration. Two random 31-bit
// values colliding is effectively never seen, but it is checked, not
// assumed.
const uidAttempts = 5

// UserInfo is the slice of a directory entry the coordinator needs.
type UserInfo struct {
	ID          string
	DisplayName string
	PushToken   string
}

// UserDirectory resolves call parties. Phone numbers are passed raw; the
// implementation normalizes.
type UserDirectory interface {
	ByPhoneNumber(ctx context.Context, phoneNumber string) (UserInfo, bool, error)
	ByID(ctx context.Context, id string) (UserInfo, bool, error)
}

// TokenIssuer mints a join credential for (channel, participant) valid
// until expireAt. The media provider behind it is opaque.
type TokenIssuer interface {
	JoinToken(channelName string, uid uint32, expireAt time.Time) (string, error)
}

// Notifier delivers the incoming-call push to the callee's device.
// Best-effort: failures are logged by the coordinator, never propagated.
type Notifier interface {
	SendCallNotification(ctx context.Context, pushToken, callerName, callID, channelName string) error
}

// Options tune the coordinator's expiry windows.
type Options struct {
	// RingingTTL bounds how long a call may ring; expiry of the record is
	// the ringing timeout, no timer involved.
	RingingTTL time.Duration
	// ActiveTTL is the maximum call duration safety net.
	ActiveTTL time.Duration
	// TokenTTL is the validity window of issued join tokens.
	TokenTTL time.Duration
}

func (o Options) withDefaults() Options {
	out := o
	if out.RingingTTL <= 0 {
		out.RingingTTL = 60 * time.Second
	}
	if out.ActiveTTL <= 0 {
		out.ActiveTTL = 2 * time.Hour
	}
	if out.TokenTTL <= 0 {
		out.TokenTTL = time.Hour
	}
	return out
}

// Coordinator owns the call state machine and every invariant over the
// ephemeral store. All cross-process signaling goes out through the bus.
type Coordinator struct {
	store    Store
	dir      UserDirectory
	issuer   TokenIssuer
	bus      events.Bus
	notifier Notifier
	log      *slog.Logger
	opts     Options

	// injectable for deterministic tests
	clock   func() time.Time
	randUID func() uint32
}

func NewCoordinator(store Store, dir UserDirectory, issuer TokenIssuer, bus events.Bus, notifier Notifier, log *slog.Logger, opts Options) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:    store,
		dir:      dir,
		issuer:   issuer,
		bus:      bus,
		notifier: notifier,
		log:      log,
		opts:     opts.withDefaults(),
		clock:    time.Now,
		randUID: func() uint32 {
			// 31-bit positive UID, never zero.
			return rand.Uint32()%(1<<31-1) + 1
		},
	}
}

type PartyInfo struct {
	Name string `json:"name"`
}

type InitiateResult struct {
	CallID      string    `json:"callId"`
	ChannelName string    `json:"channelName"`
	Token       string    `json:"token"`
	UID         uint32    `json:"uid"`
	CalleeInfo  PartyInfo `json:"calleeInfo"`
}

// Initiate starts a ringing call from callerID to the user owning
// calleePhoneNumber. On success the record and both parties' active-call
// pointers exist with the ringing TTL, and the callee's device has been
// pinged best-effort.
func (c *Coordinator) Initiate(ctx context.Context, callerID, calleePhoneNumber string) (InitiateResult, error) {
	callee, ok, err := c.dir.ByPhoneNumber(ctx, calleePhoneNumber)
	if err != nil {
		return InitiateResult{}, errInternal("failed to look up callee")
	}
	if !ok {
		return InitiateResult{}, errNotFound("no user with that phone number")
	}
	if callee.ID == callerID {
		return InitiateResult{}, errInvalid("you cannot call yourself")
	}
	// Unreachable is distinct from busy: a callee with no push-capable
	// device can never learn about the call, so reject up front.
	if callee.PushToken == "" {
		return InitiateResult{}, errNotFound("that user cannot receive calls right now")
	}

	caller, ok, err := c.dir.ByID(ctx, callerID)
	if err != nil {
		return InitiateResult{}, errInternal("failed to look up caller")
	}
	if !ok {
		return InitiateResult{}, errNotFound("caller account not found")
	}

	if _, busy, err := c.store.ActiveCallID(ctx, callerID); err != nil {
		return InitiateResult{}, errInternal("failed to check call state")
	} else if busy {
		return InitiateResult{}, errConflict("you are already in another call")
	}
	if _, busy, err := c.store.ActiveCallID(ctx, callee.ID); err != nil {
		return InitiateResult{}, errInternal("failed to check call state")
	} else if busy {
		return InitiateResult{}, errConflict("that user is in another call")
	}

	callID := uuid.NewString()
	channelName := ChannelNameFor(callID)

	callerUID, calleeUID, err := c.distinctUIDs()
	if err != nil {
		return InitiateResult{}, err
	}

	now := c.clock().UTC()
	expireAt := now.Add(c.opts.TokenTTL)

	callerToken, err := c.issuer.JoinToken(channelName, callerUID, expireAt)
	if err != nil {
		c.log.Error("join token issuance failed", "call_id", callID, "err", err)
		return InitiateResult{}, errUnavailable("failed to generate call credentials")
	}
	calleeToken, err := c.issuer.JoinToken(channelName, calleeUID, expireAt)
	if err != nil {
		c.log.Error("join token issuance failed", "call_id", callID, "err", err)
		return InitiateResult{}, errUnavailable("failed to generate call credentials")
	}

	rec := CallRecord{
		CallID:      callID,
		ChannelName: channelName,
		Status:      StatusRinging,
		Caller: Party{
			ID:          callerID,
			DisplayName: caller.DisplayName,
			UID:         callerUID,
			Token:       callerToken,
		},
		Callee: Party{
			ID:          callee.ID,
			DisplayName: callee.DisplayName,
			UID:         calleeUID,
			Token:       calleeToken,
		},
		CreatedAt: now,
	}

	if err := c.store.Create(ctx, rec, c.opts.RingingTTL); err != nil {
		c.log.Error("call create failed", "call_id", callID, "err", err)
		return InitiateResult{}, errInternal("failed to save call state")
	}

	c.log.Info("call ringing", "call_id", callID, "caller", callerID, "callee", callee.ID)

	// Push is fire-and-forget: initiation already succeeded. Detach from
	// the request context so the HTTP response does not race delivery.
	go func(pushToken, callerName string) {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := c.notifier.SendCallNotification(pushCtx, pushToken, callerName, callID, channelName); err != nil {
			c.log.Warn("call push notification failed", "call_id", callID, "err", err)
		}
	}(callee.PushToken, caller.DisplayName)

	return InitiateResult{
		CallID:      callID,
		ChannelName: channelName,
		Token:       callerToken,
		UID:         callerUID,
		CalleeInfo:  PartyInfo{Name: callee.DisplayName},
	}, nil
}

type AnswerResult struct {
	ChannelName string    `json:"channelName"`
	Token       string    `json:"token"`
	UID         uint32    `json:"uid"`
	CallerInfo  PartyInfo `json:"callerInfo"`
}

// Answer transitions ringing -> active. Only the designated callee may
// answer, exactly once: the store's conditional write checks the ringing
// status atomically, so concurrent answers resolve to one winner.
func (c *Coordinator) Answer(ctx context.Context, callID, userID string) (AnswerResult, error) {
	rec, ok, err := c.store.Get(ctx, callID)
	if err != nil {
		return AnswerResult{}, errInternal("failed to load call state")
	}
	if !ok {
		return AnswerResult{}, errNotFound("call not found or already ended")
	}
	if rec.Callee.ID != userID {
		return AnswerResult{}, errForbidden("you are not the callee of this call")
	}
	if rec.Status != StatusRinging {
		return AnswerResult{}, errConflict("call is no longer ringing")
	}

	now := c.clock().UTC()
	rec.Status = StatusActive
	rec.AnsweredAt = &now

	applied, err := c.store.UpdateIfStatus(ctx, rec, c.opts.ActiveTTL, StatusRinging)
	if err != nil {
		c.log.Error("call answer persist failed", "call_id", callID, "err", err)
		return AnswerResult{}, errInternal("failed to update call state")
	}
	if !applied {
		// Lost the race: a concurrent answer or teardown got there first.
		return AnswerResult{}, errConflict("call is no longer ringing")
	}

	c.log.Info("call answered", "call_id", callID, "callee", userID)
	c.emit(ctx, events.CallAnswered, rec.Caller.ID, answeredPayload{
		CallID: callID,
		Callee: PartyInfo{Name: rec.Callee.DisplayName},
	})

	return AnswerResult{
		ChannelName: rec.ChannelName,
		Token:       rec.Callee.Token,
		UID:         rec.Callee.UID,
		CallerInfo:  PartyInfo{Name: rec.Caller.DisplayName},
	}, nil
}

// End actions, reported so the gateway can tell a real teardown from an
// idempotent no-op.
const (
	ActionCancelled = "cancelled"
	ActionDeclined  = "declined"
	ActionEnded     = "ended"
	ActionNoop      = "noop"
)

type EndResult struct {
	Message string `json:"message"`
	Action  string `json:"-"`
}

// End tears a call down. The semantic action depends on the current status
// and which party acts: a caller hanging up a ringing call cancels it, a
// callee declines it, and either party ends an active call. End is
// idempotent: an absent record reports success with no mutation.
func (c *Coordinator) End(ctx context.Context, callID, userID string) (EndResult, error) {
	rec, ok, err := c.store.Get(ctx, callID)
	if err != nil {
		return EndResult{}, errInternal("failed to load call state")
	}
	if !ok {
		return EndResult{Message: "Call already ended.", Action: ActionNoop}, nil
	}
	if !rec.IsParty(userID) {
		return EndResult{}, errForbidden("you are not a party of this call")
	}

	isCaller := rec.Caller.ID == userID
	peer, _ := rec.PeerOf(userID)

	var eventName, message, action string
	switch {
	case rec.Status == StatusRinging && isCaller:
		eventName, message, action = events.CallCancelled, "Call cancelled.", ActionCancelled
	case rec.Status == StatusRinging:
		eventName, message, action = events.CallDeclined, "Call declined.", ActionDeclined
	default:
		eventName, message, action = events.CallEnded, "Call ended.", ActionEnded
	}

	if err := c.store.Delete(ctx, callID, rec.Caller.ID, rec.Callee.ID); err != nil {
		c.log.Error("call delete failed", "call_id", callID, "err", err)
		return EndResult{}, errInternal("failed to clear call state")
	}

	c.log.Info("call torn down", "call_id", callID, "by", userID, "event", eventName)
	c.emit(ctx, eventName, peer.ID, endedPayload{CallID: callID, EndedBy: userID})

	return EndResult{Message: message, Action: action}, nil
}

// ActiveCall resolves the user's live call via the O(1) pointer index.
// Failures degrade to "no active call": clients poll this endpoint
// defensively and it must stay available. A pointer whose record is gone
// or no longer names the user is stale and gets cleaned up on the spot.
func (c *Coordinator) ActiveCall(ctx context.Context, userID string) (*CallRecord, error) {
	callID, ok, err := c.store.ActiveCallID(ctx, userID)
	if err != nil {
		c.log.Warn("active call pointer lookup failed", "user", userID, "err", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	rec, ok, err := c.store.Get(ctx, callID)
	if err != nil {
		c.log.Warn("active call load failed", "call_id", callID, "err", err)
		return nil, nil
	}
	if !ok || !rec.IsParty(userID) {
		if err := c.store.DeletePointer(ctx, userID); err != nil {
			c.log.Warn("stale pointer cleanup failed", "user", userID, "err", err)
		}
		return nil, nil
	}

	out := rec.RedactedFor(userID)
	return &out, nil
}

func (c *Coordinator) distinctUIDs() (uint32, uint32, error) {
	a := c.randUID()
	for i := 0; i < uidAttempts; i++ {
		b := c.randUID()
		if b != a {
			return a, b, nil
		}
	}
	return 0, 0, errInternal("failed to generate distinct participant ids")
}

type answeredPayload struct {
	CallID string    `json:"callId"`
	Callee PartyInfo `json:"callee"`
}

type endedPayload struct {
	CallID  string `json:"callId"`
	EndedBy string `json:"endedBy,omitempty"`
}

// emit publishes a signaling event addressed to target. The state
// transition has already been persisted; a publish failure only costs the
// live notification, so it is logged and swallowed.
func (c *Coordinator) emit(ctx context.Context, name, target string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("event payload marshal failed", "event", name, "err", err)
		return
	}
	if err := c.bus.Publish(ctx, events.Event{Name: name, Target: target, Data: data}); err != nil {
		c.log.Warn("event publish failed", "event", name, "target", target, "err", err)
	}
}
