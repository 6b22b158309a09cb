package dialogue

import (
	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

func (m *Machine) request(id primitive.DialogueID, peer primitive.Instance, params []byte) primitive.Outbound {
	return m.outbound(primitive.DialogueRequest, id, peer, params)
}

func (m *Machine) service(id primitive.DialogueID, peer primitive.Instance, params []byte) primitive.Outbound {
	return m.outbound(primitive.ServiceRequest, id, peer, params)
}

func (m *Machine) outbound(messageType primitive.MessageType, id primitive.DialogueID, peer primitive.Instance, params []byte) primitive.Outbound {
	return primitive.Outbound{
		Type:       messageType,
		DialogueID: id,
		Instance:   peer,
		Src:        m.localModule,
		Dst:        m.peerModule,
		Params:     params,
	}
}

func openResponse(result byte, applicationContext []byte) []byte {
	return tlv.Encode(byte(primitive.OpenResponse),
		tlv.P(primitive.TagResult, result),
		tlv.Param{Tag: primitive.TagApplicationContext, Value: applicationContext},
	)
}

func closeRequest(releaseMethod byte) []byte {
	return tlv.Encode(byte(primitive.CloseRequest), tlv.P(primitive.TagReleaseMethod, releaseMethod))
}

func userAbortRequest(reason byte) []byte {
	return tlv.Encode(byte(primitive.UserAbortRequest), tlv.P(primitive.TagUserReason, reason))
}

func delimiterRequest() []byte {
	return tlv.Encode(byte(primitive.DelimiterRequest))
}
