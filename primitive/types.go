package primitive

import "fmt"

// DialogueType is the subtype of a dialogue primitive. Requests and indications share their
// code, responses and confirmations have the high bit set.
type DialogueType byte

// All dialogue primitive subtypes.
const (
	OpenRequest             DialogueType = 0x01
	OpenIndication          DialogueType = 0x01
	CloseRequest            DialogueType = 0x02
	CloseIndication         DialogueType = 0x02
	DelimiterRequest        DialogueType = 0x03
	DelimiterIndication     DialogueType = 0x03
	UserAbortRequest        DialogueType = 0x04
	UserAbortIndication     DialogueType = 0x04
	ProviderAbortIndication DialogueType = 0x05
	NoticeIndication        DialogueType = 0x06
	OpenResponse            DialogueType = 0x81
	OpenConfirm             DialogueType = 0x81
)

var dialogueIndicationNames = map[DialogueType]string{
	OpenIndication:          "open-ind",
	CloseIndication:         "close-ind",
	DelimiterIndication:     "delimiter-ind",
	UserAbortIndication:     "u-abort-ind",
	ProviderAbortIndication: "p-abort-ind",
	NoticeIndication:        "notice-ind",
	OpenConfirm:             "open-cnf",
}

// IndicationName returns the name of this subtype when it is received.
func (t DialogueType) IndicationName() string {
	if name, ok := dialogueIndicationNames[t]; ok {
		return name
	}
	return fmt.Sprintf("dlg-0x%02x", byte(t))
}

// ServiceType is the subtype of a service primitive. The pattern follows the MAP module:
// request n, indication n+1, confirmation n|0x80, response (n+1)|0x80.
type ServiceType byte

// All service primitive subtypes handled by the responder.
const (
	SendRoutingInfoForSMRequest    ServiceType = 0x01
	SendRoutingInfoForSMIndication ServiceType = 0x02
	SendRoutingInfoForSMResponse   ServiceType = 0x82

	ForwardSMRequest    ServiceType = 0x03
	ForwardSMIndication ServiceType = 0x04
	ForwardSMResponse   ServiceType = 0x84

	MTForwardSMRequest    ServiceType = 0x0b
	MTForwardSMIndication ServiceType = 0x0c
	MTForwardSMResponse   ServiceType = 0x8c

	SendRoutingInfoForGPRSRequest    ServiceType = 0x2d
	SendRoutingInfoForGPRSIndication ServiceType = 0x2e
	SendRoutingInfoForGPRSResponse   ServiceType = 0xae

	ProcessUnstructuredSSRequest    ServiceType = 0x2f
	ProcessUnstructuredSSIndication ServiceType = 0x30
	ProcessUnstructuredSSResponse   ServiceType = 0xb0

	UnstructuredSSRequest      ServiceType = 0x31
	UnstructuredSSIndication   ServiceType = 0x32
	UnstructuredSSConfirmation ServiceType = 0xb1
	UnstructuredSSResponse     ServiceType = 0xb2

	UnstructuredSSNotifyRequest    ServiceType = 0x33
	UnstructuredSSNotifyIndication ServiceType = 0x34
	UnstructuredSSNotifyResponse   ServiceType = 0xb4

	SendIMSIRequest    ServiceType = 0x45
	SendIMSIIndication ServiceType = 0x46
	SendIMSIResponse   ServiceType = 0xc6

	AnyTimeInterrogationRequest    ServiceType = 0x49
	AnyTimeInterrogationIndication ServiceType = 0x4a
	AnyTimeInterrogationResponse   ServiceType = 0xca
)

var serviceNames = map[ServiceType]string{
	SendRoutingInfoForSMIndication:   "send-routing-info-for-sm-ind",
	SendRoutingInfoForSMResponse:     "send-routing-info-for-sm-rsp",
	ForwardSMIndication:              "forward-sm-ind",
	ForwardSMResponse:                "forward-sm-rsp",
	MTForwardSMIndication:            "mt-forward-sm-ind",
	MTForwardSMResponse:              "mt-forward-sm-rsp",
	SendRoutingInfoForGPRSIndication: "send-routing-info-for-gprs-ind",
	SendRoutingInfoForGPRSResponse:   "send-routing-info-for-gprs-rsp",
	ProcessUnstructuredSSIndication:  "process-unstructured-ss-ind",
	ProcessUnstructuredSSResponse:    "process-unstructured-ss-rsp",
	UnstructuredSSRequest:            "unstructured-ss-req",
	UnstructuredSSIndication:         "unstructured-ss-ind",
	UnstructuredSSConfirmation:       "unstructured-ss-cnf",
	UnstructuredSSResponse:           "unstructured-ss-rsp",
	UnstructuredSSNotifyIndication:   "unstructured-ss-notify-ind",
	UnstructuredSSNotifyResponse:     "unstructured-ss-notify-rsp",
	SendIMSIIndication:               "send-imsi-ind",
	SendIMSIResponse:                 "send-imsi-rsp",
	AnyTimeInterrogationIndication:   "anytime-interrogation-ind",
	AnyTimeInterrogationResponse:     "anytime-interrogation-rsp",
}

func (t ServiceType) String() string {
	if name, ok := serviceNames[t]; ok {
		return name
	}
	return fmt.Sprintf("srv-0x%02x", byte(t))
}

// Tag is the parameter name of one TLV parameter.
type Tag byte

// All parameter names used by the responder. Tag 0 terminates a parameter stream.
const (
	TagTerminator         Tag = 0x00
	TagResult             Tag = 0x05
	TagReleaseMethod      Tag = 0x07
	TagUserReason         Tag = 0x08
	TagApplicationContext Tag = 0x0b
	TagInvokeID           Tag = 0x0e
	TagMSISDN             Tag = 0x10
	TagIMSI               Tag = 0x12
	TagMSCNumber          Tag = 0x15
	TagSMRPUI             Tag = 0x19
	TagSGSNAddress        Tag = 0x2c
	TagUSSDCoding         Tag = 0x31
	TagUSSDString         Tag = 0x32
	TagGeographicalInfo   Tag = 0x4d
)

// Result of an open response.
const (
	DialogueAccepted byte = 0x00
	DialogueRefused  byte = 0x01
)

// Release methods of a close request.
const (
	NormalRelease  byte = 0x00
	PrearrangedEnd byte = 0x01
)

// User reasons of an abort request.
const (
	UserSpecificReason         byte = 0x00
	UserResourceLimitation     byte = 0x01
	ResourceUnavailable        byte = 0x02
	ApplicationProcedureCancel byte = 0x03
	ProcedureError             byte = 0x04
)
