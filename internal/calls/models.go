package calls

import "time"

// Status is the persisted state of a call record. There is deliberately no
// "ended" value: a call that no longer exists in the store has ended, and
// deletion (or TTL expiry) is the terminal transition.
type Status string

const (
	StatusRinging Status = "ringing"
	StatusActive  Status = "active"
)

// Party is one leg of a call. UID is the numeric participant identifier
// handed to the external media transport; Token is that participant's join
// credential and must only ever be returned to the party it belongs to.
type Party struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	UID         uint32 `json:"uid"`
	Token       string `json:"token,omitempty"`
}

// CallRecord is the authoritative ephemeral state of one call attempt,
// stored as a single serialized value keyed by call id.
//
// Invariants:
//   - A record exists iff the call is ringing or active.
//   - Caller.UID != Callee.UID.
//   - At most one record references a given user, enforced via the per-user
//     active-call pointer written atomically alongside the record.
type CallRecord struct {
	CallID      string `json:"callId"`
	ChannelName string `json:"channelName"`
	Status      Status `json:"status"`

	Caller Party `json:"caller"`
	Callee Party `json:"callee"`

	CreatedAt  time.Time  `json:"createdAt"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

// ChannelNameFor derives the media channel name from a call id.
// The mapping is deterministic; both parties join the same channel.
func ChannelNameFor(callID string) string {
	return "call-" + callID
}

func (r CallRecord) IsParty(userID string) bool {
	return r.Caller.ID == userID || r.Callee.ID == userID
}

// PeerOf returns the other party of the call relative to userID.
func (r CallRecord) PeerOf(userID string) (Party, bool) {
	switch userID {
	case r.Caller.ID:
		return r.Callee, true
	case r.Callee.ID:
		return r.Caller, true
	default:
		return Party{}, false
	}
}

// RedactedFor returns a copy of the record with the counterpart's join
// token stripped. A user polling call status must never see the other
// side's credential.
func (r CallRecord) RedactedFor(userID string) CallRecord {
	out := r
	if userID == r.Caller.ID {
		out.Callee.Token = ""
	}
	if userID == r.Callee.ID {
		out.Caller.Token = ""
	}
	return out
}
