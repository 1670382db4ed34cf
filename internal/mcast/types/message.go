// Package types holds the wire message model shared by every layer of the
// protocol: the sender, the transport, and the receiver all speak the same
// tagged record.
package types

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownKind is returned by Decode when a frame carries a discriminator
// this peer does not understand.
var ErrUnknownKind = errors.New("mcast: unknown message kind")

// ProtocolVersion is the wire protocol version this build speaks. It is
// stamped on every outgoing Message and checked on receipt by
// core.CheckProtocolVersion.
const ProtocolVersion = "1.0.0"

// Kind discriminates the one wire shape a Message can take.
type Kind string

const (
	// KindMulticast is a reliable multicast payload awaiting acknowledgment.
	KindMulticast Kind = "multicast"

	// KindAck acknowledges receipt of a single Multicast by message id.
	KindAck Kind = "acknowledgment"
)

// ID is an opaque 128-bit identifier, unique across all peers and time.
type ID string

// NewID generates a fresh, globally unique message identifier.
func NewID() ID {
	return ID(uuid.New().String())
}

// Message is the single tagged record transmitted over the wire. Multicast
// and Ack share this shape; fields that don't apply to a given Kind are left
// at their zero value.
type Message struct {
	MessageID       ID     `json:"message_id"`
	SenderID        int    `json:"sender_id"`
	Kind            Kind   `json:"message_type"`
	Timestamp       uint64 `json:"timestamp"`
	Content         string `json:"content"`
	Recipients      []int  `json:"recipients"`
	ProtocolVersion string `json:"protocol_version"`

	// Multicast-only fields.
	SequenceNumber uint64 `json:"sequence_number,omitempty"`
	RequiresAck    bool   `json:"requires_ack,omitempty"`

	// Ack-only field.
	OriginalMessageID ID `json:"original_message_id,omitempty"`
}

// NewMulticast builds a Multicast-kind Message with a fresh identifier.
func NewMulticast(sender int, timestamp uint64, content string, recipients []int, sequence uint64) Message {
	ordered := make([]int, len(recipients))
	copy(ordered, recipients)
	return Message{
		MessageID:       NewID(),
		SenderID:        sender,
		Kind:            KindMulticast,
		Timestamp:       timestamp,
		Content:         content,
		Recipients:      ordered,
		SequenceNumber:  sequence,
		RequiresAck:     true,
		ProtocolVersion: ProtocolVersion,
	}
}

// NewAck builds an Ack-kind Message acknowledging original by sender.
func NewAck(sender int, timestamp uint64, original ID) Message {
	return Message{
		MessageID:         NewID(),
		SenderID:          sender,
		Kind:              KindAck,
		Timestamp:         timestamp,
		Content:           "ACK",
		Recipients:        []int{},
		OriginalMessageID: original,
		ProtocolVersion:   ProtocolVersion,
	}
}

// Encode serializes the message as the self-describing UTF-8 text carried
// inside every length-prefixed frame (see core.Transport).
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode reconstructs a Message from its wire encoding. An unrecognized
// Kind is a decode error; callers must drop the frame and keep listening.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	switch m.Kind {
	case KindMulticast, KindAck:
	default:
		return Message{}, ErrUnknownKind
	}
	if m.Recipients == nil {
		m.Recipients = []int{}
	}
	return m, nil
}

// Precedes reports whether m strictly precedes other in the delivery
// order: (timestamp, sender_id) lexicographic ascending.
func (m Message) Precedes(other Message) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.SenderID < other.SenderID
}
