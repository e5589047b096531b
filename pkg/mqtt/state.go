package mqtt

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/relayrx/pkg/actuation"
	"github.com/robotalks/relayrx/pkg/relay"
)

// RelayState is published each time a mask is applied.
type RelayState struct {
	Device          string   `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Mask            uint32   `protobuf:"varint,2,opt,name=mask,proto3" json:"mask,omitempty"`
	Active          []string `protobuf:"bytes,3,rep,name=active,proto3" json:"active,omitempty"`
	AppliedUnixNano int64    `protobuf:"varint,4,opt,name=applied_unix_nano,proto3" json:"applied_unix_nano,omitempty"`
}

// NewRelayState converts the engine state.
func NewRelayState(device string, st actuation.State) *RelayState {
	m := &RelayState{
		Device: device,
		Mask:   uint32(st.Mask),
		Active: st.Mask.Active(),
	}
	if !st.Applied.IsZero() {
		m.AppliedUnixNano = st.Applied.UnixNano()
	}
	return m
}

// DecodeRelayState parses an encoded RelayState.
func DecodeRelayState(data []byte) (*RelayState, error) {
	m := &RelayState{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// State converts back to the engine state.
func (m *RelayState) State() actuation.State {
	st := actuation.State{Mask: relay.Mask(m.Mask) & relay.MaskBits}
	if m.AppliedUnixNano != 0 {
		st.Applied = time.Unix(0, m.AppliedUnixNano)
	}
	return st
}

// ProtoMessage implements proto.Message.
func (m *RelayState) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RelayState) Reset() { *m = RelayState{} }

// String implements proto.Message.
func (m *RelayState) String() string { return proto.CompactTextString(m) }
