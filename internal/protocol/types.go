package protocol

import "encoding/json"

const (
	TypeSendPacket = "send_packet"
	TypeSendAck    = "send_ack"
	TypePacket     = "packet"
	TypePacketAck  = "packet_ack"
	TypeWelcome    = "welcome"
	TypeError      = "error"
)

type Envelope struct {
	MsgID     string          `json:"msg_id"`
	TraceID   string          `json:"trace_id,omitempty"`
	Type      string          `json:"type"`
	TargetID  string          `json:"target_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SendPacketPayload is sent by a panel to have a packet built and sent to
// the listed sessions.
type SendPacketPayload struct {
	Kind        string          `json:"kind"`
	Params      json.RawMessage `json:"params,omitempty"`
	EndpointIDs []string        `json:"endpoint_ids"`
}

type SendAckPayload struct {
	SendMsgID string `json:"send_msg_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// PacketPayload carries a native packet to a session. Data is the host's own
// representation.
type PacketPayload struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Data    any    `json:"data"`
}

type WelcomePayload struct {
	EndpointID string   `json:"endpoint_id"`
	Version    string   `json:"version"`
	Kinds      []string `json:"kinds"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
