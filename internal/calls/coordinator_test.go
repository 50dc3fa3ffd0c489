package calls

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"temandifa-backend/internal/events"
	"temandifa-backend/internal/rtc"
)

// fakeDirectory is an in-memory UserDirectory keyed by id and phone.
type fakeDirectory struct {
	byID    map[string]UserInfo
	byPhone map[string]UserInfo
}

func newFakeDirectory(users ...UserInfo) *fakeDirectory {
	d := &fakeDirectory{byID: map[string]UserInfo{}, byPhone: map[string]UserInfo{}}
	for i, u := range users {
		d.byID[u.ID] = u
		d.byPhone[phoneFor(i)] = u
	}
	return d
}

// phoneFor gives user i of newFakeDirectory the phone "0810000000<i>".
func phoneFor(i int) string {
	return "081000000" + string(rune('0'+i))
}

func (d *fakeDirectory) ByPhoneNumber(_ context.Context, phone string) (UserInfo, bool, error) {
	u, ok := d.byPhone[phone]
	return u, ok, nil
}

func (d *fakeDirectory) ByID(_ context.Context, id string) (UserInfo, bool, error) {
	u, ok := d.byID[id]
	return u, ok, nil
}

// recordingNotifier captures pushes and signals delivery, since Initiate
// sends them from a goroutine.
type recordingNotifier struct {
	mu     sync.Mutex
	pushes []string
	done   chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) SendCallNotification(_ context.Context, pushToken, callerName, callID, channelName string) error {
	n.mu.Lock()
	n.pushes = append(n.pushes, pushToken)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("push notification never sent")
	}
}

// recordingBus wraps MemoryBus and keeps every published event.
type recordingBus struct {
	*events.MemoryBus
	mu        sync.Mutex
	published []events.Event
}

func newRecordingBus() *recordingBus {
	return &recordingBus{MemoryBus: events.NewMemoryBus()}
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) error {
	b.mu.Lock()
	b.published = append(b.published, e)
	b.mu.Unlock()
	return b.MemoryBus.Publish(ctx, e)
}

func (b *recordingBus) events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, len(b.published))
	copy(out, b.published)
	return out
}

type coordFixture struct {
	coord    *Coordinator
	store    *MemoryStore
	bus      *recordingBus
	notifier *recordingNotifier
	now      time.Time
	setNow   func(time.Time)
}

var (
	alice = UserInfo{ID: "u-alice", DisplayName: "Alice", PushToken: "ExponentPushToken[alice]"}
	bob   = UserInfo{ID: "u-bob", DisplayName: "Bob", PushToken: "ExponentPushToken[bob]"}
	carol = UserInfo{ID: "u-carol", DisplayName: "Carol", PushToken: "ExponentPushToken[carol]"}
)

const (
	alicePhone = "0810000000" // phoneFor(0)
	bobPhone   = "0810000001"
	carolPhone = "0810000002"
)

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()

	store := NewMemoryStore()
	bus := newRecordingBus()
	notifier := newRecordingNotifier()
	dir := newFakeDirectory(alice, bob, carol)

	coord := NewCoordinator(
		store,
		dir,
		rtc.StaticIssuer{Token: "join-token"},
		bus,
		notifier,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{RingingTTL: 60 * time.Second, ActiveTTL: 2 * time.Hour},
	)

	f := &coordFixture{coord: coord, store: store, bus: bus, notifier: notifier}
	f.now = time.Unix(1700000000, 0).UTC()
	f.setNow = func(now time.Time) {
		f.now = now
		coord.clock = func() time.Time { return f.now }
		store.SetClock(func() time.Time { return f.now })
	}
	f.setNow(f.now)
	return f
}

func TestInitiateCreatesRingingCall(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	res, err := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if res.CallID == "" {
		t.Fatalf("expected a call id")
	}
	if res.ChannelName != ChannelNameFor(res.CallID) {
		t.Fatalf("channel name mismatch: %q", res.ChannelName)
	}
	if res.Token == "" || res.UID == 0 {
		t.Fatalf("expected caller credentials, got %+v", res)
	}
	if res.CalleeInfo.Name != "Bob" {
		t.Fatalf("callee info: %+v", res.CalleeInfo)
	}

	rec, ok, err := f.store.Get(ctx, res.CallID)
	if err != nil || !ok {
		t.Fatalf("record missing: ok=%v err=%v", ok, err)
	}
	if rec.Status != StatusRinging {
		t.Fatalf("status = %q, want ringing", rec.Status)
	}
	if rec.Caller.UID == rec.Callee.UID {
		t.Fatalf("participant uids must differ")
	}
	for _, id := range []string{alice.ID, bob.ID} {
		if _, busy, _ := f.store.ActiveCallID(ctx, id); !busy {
			t.Fatalf("expected active pointer for %s", id)
		}
	}

	f.notifier.wait(t)
	if got := f.notifier.pushes[0]; got != bob.PushToken {
		t.Fatalf("push went to %q", got)
	}
}

func TestInitiateRejectsSelfCall(t *testing.T) {
	f := newCoordFixture(t)

	_, err := f.coord.Initiate(context.Background(), alice.ID, alicePhone)
	if StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v (status %d)", err, StatusOf(err))
	}
}

func TestInitiateUnknownPhoneIsNotFound(t *testing.T) {
	f := newCoordFixture(t)

	_, err := f.coord.Initiate(context.Background(), alice.ID, "0899999999")
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestInitiateUnreachableCalleeIsNotFound(t *testing.T) {
	f := newCoordFixture(t)
	dave := UserInfo{ID: "u-dave", DisplayName: "Dave"} // no push token
	f.coord.dir.(*fakeDirectory).byID[dave.ID] = dave
	f.coord.dir.(*fakeDirectory).byPhone["0810000009"] = dave

	_, err := f.coord.Initiate(context.Background(), alice.ID, "0810000009")
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for push-less callee, got %v", err)
	}
}

func TestInitiateWhileBusyConflicts(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	if _, err := f.coord.Initiate(ctx, alice.ID, bobPhone); err != nil {
		t.Fatalf("first initiate: %v", err)
	}

	// Caller already in a call.
	if _, err := f.coord.Initiate(ctx, alice.ID, carolPhone); StatusOf(err) != http.StatusConflict {
		t.Fatalf("busy caller: expected 409, got %v", err)
	}
	// Callee already in a call.
	if _, err := f.coord.Initiate(ctx, carol.ID, bobPhone); StatusOf(err) != http.StatusConflict {
		t.Fatalf("busy callee: expected 409, got %v", err)
	}
	// An uninvolved pair is unaffected.
	f2 := newCoordFixture(t)
	if _, err := f2.coord.Initiate(ctx, carol.ID, alicePhone); err != nil {
		t.Fatalf("unrelated pair: %v", err)
	}
}

func TestAnswerTransitionsToActive(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, err := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	ans, err := f.coord.Answer(ctx, initRes.CallID, bob.ID)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if ans.ChannelName != initRes.ChannelName {
		t.Fatalf("channel mismatch")
	}
	if ans.Token == "" || ans.UID == 0 {
		t.Fatalf("expected callee credentials, got %+v", ans)
	}
	if ans.CallerInfo.Name != "Alice" {
		t.Fatalf("caller info: %+v", ans.CallerInfo)
	}

	rec, ok, _ := f.store.Get(ctx, initRes.CallID)
	if !ok || rec.Status != StatusActive {
		t.Fatalf("record after answer: ok=%v status=%q", ok, rec.Status)
	}
	if rec.AnsweredAt == nil || !rec.AnsweredAt.Equal(f.now) {
		t.Fatalf("answeredAt = %v", rec.AnsweredAt)
	}

	evts := f.bus.events()
	if len(evts) != 1 || evts[0].Name != events.CallAnswered || evts[0].Target != alice.ID {
		t.Fatalf("events = %+v", evts)
	}
}

func TestAnswerByNonCalleeForbidden(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	// Not even the caller may answer.
	if _, err := f.coord.Answer(ctx, initRes.CallID, alice.ID); StatusOf(err) != http.StatusForbidden {
		t.Fatalf("caller answering: expected 403, got %v", err)
	}
	if _, err := f.coord.Answer(ctx, initRes.CallID, carol.ID); StatusOf(err) != http.StatusForbidden {
		t.Fatalf("third party answering: expected 403, got %v", err)
	}
}

func TestAnswerTwiceConflicts(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if _, err := f.coord.Answer(ctx, initRes.CallID, bob.ID); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := f.coord.Answer(ctx, initRes.CallID, bob.ID); StatusOf(err) != http.StatusConflict {
		t.Fatalf("second answer: expected 409, got %v", err)
	}
}

func TestAnswerConcurrentSingleWinner(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, err := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	const racers = 4
	start := make(chan struct{})
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.coord.Answer(ctx, initRes.CallID, bob.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case StatusOf(err) == http.StatusConflict:
			lost++
		default:
			t.Fatalf("unexpected answer error: %v", err)
		}
	}
	if won != 1 || lost != racers-1 {
		t.Fatalf("winners = %d, losers = %d", won, lost)
	}

	rec, ok, _ := f.store.Get(ctx, initRes.CallID)
	if !ok || rec.Status != StatusActive {
		t.Fatalf("record after race: ok=%v status=%q", ok, rec.Status)
	}
	// Exactly one transition emitted exactly one event.
	if n := len(f.bus.events()); n != 1 {
		t.Fatalf("published %d events, want 1", n)
	}
}

func TestAnswerMissingCallNotFound(t *testing.T) {
	f := newCoordFixture(t)

	if _, err := f.coord.Answer(context.Background(), "no-such-call", bob.ID); StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestEndRingingByCallerCancels(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	res, err := f.coord.End(ctx, initRes.CallID, alice.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if res.Action != ActionCancelled {
		t.Fatalf("action = %q, want cancelled", res.Action)
	}

	assertCallGone(t, f, initRes.CallID)

	evts := f.bus.events()
	if len(evts) != 1 || evts[0].Name != events.CallCancelled || evts[0].Target != bob.ID {
		t.Fatalf("events = %+v", evts)
	}
	var payload struct {
		CallID  string `json:"callId"`
		EndedBy string `json:"endedBy"`
	}
	if err := json.Unmarshal(evts[0].Data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.CallID != initRes.CallID || payload.EndedBy != alice.ID {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestEndRingingByCalleeDeclines(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	res, err := f.coord.End(ctx, initRes.CallID, bob.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if res.Action != ActionDeclined {
		t.Fatalf("action = %q, want declined", res.Action)
	}

	evts := f.bus.events()
	if len(evts) != 1 || evts[0].Name != events.CallDeclined || evts[0].Target != alice.ID {
		t.Fatalf("events = %+v", evts)
	}
}

func TestEndActiveCallEitherParty(t *testing.T) {
	for _, ender := range []UserInfo{alice, bob} {
		f := newCoordFixture(t)
		ctx := context.Background()

		initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)
		if _, err := f.coord.Answer(ctx, initRes.CallID, bob.ID); err != nil {
			t.Fatalf("answer: %v", err)
		}

		res, err := f.coord.End(ctx, initRes.CallID, ender.ID)
		if err != nil {
			t.Fatalf("end by %s: %v", ender.ID, err)
		}
		if res.Action != ActionEnded {
			t.Fatalf("action = %q, want ended", res.Action)
		}
		assertCallGone(t, f, initRes.CallID)

		evts := f.bus.events()
		last := evts[len(evts)-1]
		peer := bob.ID
		if ender.ID == bob.ID {
			peer = alice.ID
		}
		if last.Name != events.CallEnded || last.Target != peer {
			t.Fatalf("last event = %+v", last)
		}
	}
}

func TestEndIsIdempotent(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if _, err := f.coord.End(ctx, initRes.CallID, alice.ID); err != nil {
		t.Fatalf("first end: %v", err)
	}

	res, err := f.coord.End(ctx, initRes.CallID, alice.ID)
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if res.Action != ActionNoop {
		t.Fatalf("second end action = %q, want noop", res.Action)
	}
	// No extra event for the no-op.
	if n := len(f.bus.events()); n != 1 {
		t.Fatalf("published %d events, want 1", n)
	}

	// Ending a call that never existed is also a success.
	res, err = f.coord.End(ctx, "never-existed", alice.ID)
	if err != nil || res.Action != ActionNoop {
		t.Fatalf("unknown call end: %+v err=%v", res, err)
	}
}

func TestEndByThirdPartyForbidden(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if _, err := f.coord.End(ctx, initRes.CallID, carol.ID); StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	// The call survives the rejected attempt.
	if _, ok, _ := f.store.Get(ctx, initRes.CallID); !ok {
		t.Fatalf("call was torn down by a non-party")
	}
}

func TestRingingCallExpires(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	f.setNow(f.now.Add(61 * time.Second))

	if _, err := f.coord.Answer(ctx, initRes.CallID, bob.ID); StatusOf(err) != http.StatusNotFound {
		t.Fatalf("answer after expiry: expected 404, got %v", err)
	}
	// Both parties are free to call again.
	if _, err := f.coord.Initiate(ctx, alice.ID, carolPhone); err != nil {
		t.Fatalf("initiate after expiry: %v", err)
	}
}

func TestAnswerExtendsLifetime(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)
	if _, err := f.coord.Answer(ctx, initRes.CallID, bob.ID); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// Well past the ringing window but inside the active window.
	f.setNow(f.now.Add(30 * time.Minute))
	rec, ok, _ := f.store.Get(ctx, initRes.CallID)
	if !ok || rec.Status != StatusActive {
		t.Fatalf("active call vanished: ok=%v", ok)
	}

	// Past the active safety net.
	f.setNow(f.now.Add(2 * time.Hour))
	if _, ok, _ := f.store.Get(ctx, initRes.CallID); ok {
		t.Fatalf("call outlived the active ttl")
	}
}

func TestActiveCallRedactsPeerToken(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	rec, err := f.coord.ActiveCall(ctx, alice.ID)
	if err != nil {
		t.Fatalf("active call: %v", err)
	}
	if rec == nil || rec.CallID != initRes.CallID {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Caller.Token == "" {
		t.Fatalf("caller must see own token")
	}
	if rec.Callee.Token != "" {
		t.Fatalf("caller must not see callee token")
	}

	rec, err = f.coord.ActiveCall(ctx, bob.ID)
	if err != nil {
		t.Fatalf("active call: %v", err)
	}
	if rec.Callee.Token == "" || rec.Caller.Token != "" {
		t.Fatalf("callee view leaked caller token: %+v", rec)
	}
}

func TestActiveCallNoneIsNil(t *testing.T) {
	f := newCoordFixture(t)

	rec, err := f.coord.ActiveCall(context.Background(), alice.ID)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", rec, err)
	}
}

func TestActiveCallHealsStalePointer(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	initRes, _ := f.coord.Initiate(ctx, alice.ID, bobPhone)

	// Simulate a record deleted without its pointers.
	if err := f.store.Delete(ctx, initRes.CallID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec, err := f.coord.ActiveCall(ctx, alice.ID)
	if err != nil || rec != nil {
		t.Fatalf("expected nil for stale pointer, got %+v, %v", rec, err)
	}
	// The pointer itself was cleaned up.
	if _, ok, _ := f.store.ActiveCallID(ctx, alice.ID); ok {
		t.Fatalf("stale pointer survived")
	}
}

func assertCallGone(t *testing.T, f *coordFixture, callID string) {
	t.Helper()
	ctx := context.Background()

	if _, ok, _ := f.store.Get(ctx, callID); ok {
		t.Fatalf("call record still present")
	}
	for _, id := range []string{alice.ID, bob.ID} {
		if _, busy, _ := f.store.ActiveCallID(ctx, id); busy {
			t.Fatalf("active pointer for %s still present", id)
		}
	}
}
