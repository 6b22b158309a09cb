package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

func TestBuild(t *testing.T) {
	catalog := Default()
	tt := []struct {
		indication   primitive.ServiceType
		expected     string
		continuation Continuation
	}{
		{primitive.ForwardSMIndication, "84 0e01 07 00", Close},
		{primitive.MTForwardSMIndication, "8c 0e01 07 00", Close},
		{primitive.SendIMSIIndication, "c6 0e01 07 1207 06086287004045 00", Close},
		{primitive.SendRoutingInfoForGPRSIndication, "ae 0e01 07 2c05 04c1c3b971 00", Close},
		{primitive.SendRoutingInfoForSMIndication, "82 0e01 07 1207 06086287004045 1507 91732509000020 00", Close},
		{primitive.UnstructuredSSNotifyIndication, "b2 0e01 07 00", ByTerminationMode},
		{primitive.UnstructuredSSIndication, "b2 0e01 07 3101 0f 3211 54747a0e4acf41f3701bce2e83e8653c1d 00", Delimit},
		{primitive.UnstructuredSSConfirmation, "b0 0e01 07 3101 0f 3210 d9775d0e1287d961f7b80cea81663558 00", Close},
		{primitive.AnyTimeInterrogationIndication, "ca 0e01 07 4d08 1410000080000014 00", Close},
	}
	for _, tc := range tt {
		t.Run(tc.indication.String(), func(t *testing.T) {
			expected, err := primitive.HexToBinary(tc.expected)
			require.NoError(t, err)

			actual, continuation, err := catalog.Build(tc.indication, 0x07, nil)
			require.NoError(t, err)
			defer tlv.Release(actual)

			assert.Equal(t, expected, actual)
			assert.Equal(t, tc.continuation, continuation)
		})
	}
}

func TestBuild_UnstructuredSSRequest(t *testing.T) {
	actual, continuation, err := Default().Build(primitive.ProcessUnstructuredSSIndication, 0x01, nil)
	require.NoError(t, err)
	defer tlv.Release(actual)

	assert.Equal(t, Delimit, continuation)
	assert.Equal(t, byte(primitive.UnstructuredSSRequest), actual[0])
	assert.Len(t, actual, 1+3+3+2+37+1)

	text, err := tlv.Find(actual, primitive.TagUSSDString)
	require.NoError(t, err)
	assert.Equal(t, MenuUSSD, text)
}

func TestBuild_Unknown(t *testing.T) {
	_, _, err := Default().Build(primitive.ServiceType(0x7f), 0x01, nil)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestBuild_AnyTimeInterrogationSample(t *testing.T) {
	actual, _, err := Default().Build(primitive.AnyTimeInterrogationIndication, 0x02, []byte{0x91, 0x44, 0xf3})
	require.NoError(t, err)
	defer tlv.Release(actual)

	location, err := tlv.Find(actual, primitive.TagGeographicalInfo)
	require.NoError(t, err)
	assert.Equal(t, GeographicalInfoSamples[3][:], location)
}

func TestRecognized(t *testing.T) {
	catalog := Default()

	for _, indication := range []primitive.ServiceType{
		primitive.ForwardSMIndication,
		primitive.MTForwardSMIndication,
		primitive.SendIMSIIndication,
		primitive.SendRoutingInfoForGPRSIndication,
		primitive.SendRoutingInfoForSMIndication,
		primitive.ProcessUnstructuredSSIndication,
		primitive.UnstructuredSSConfirmation,
		primitive.UnstructuredSSIndication,
		primitive.UnstructuredSSNotifyIndication,
		primitive.AnyTimeInterrogationIndication,
	} {
		assert.True(t, catalog.Recognized(indication), indication.String())
	}
	assert.False(t, catalog.Recognized(primitive.ForwardSMResponse))
	assert.False(t, catalog.Recognized(primitive.ServiceType(0x7f)))
}

func TestSampleIndex(t *testing.T) {
	tt := []struct {
		desc       string
		subscriber []byte
		expected   int
	}{
		{"raw digit", []byte{0x91, 0x21, 0x71}, 7},
		{"filled digit", []byte{0x91, 0x21, 0xf3}, 3},
		{"raw digit beyond table", []byte{0x91, 0x21, 0x91}, 0},
		{"filled digit beyond table", []byte{0x91, 0xf9}, 0},
		{"no subscriber", nil, 0},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, SampleIndex(tc.subscriber))
		})
	}
}

func TestUSSDTexts(t *testing.T) {
	tt := []struct {
		desc      string
		packed    []byte
		charCount int
		expected  string
	}{
		{"menu", MenuUSSD, 42, "XY Telecom\n 1. Balance\n 2. Texts Remaining"},
		{"sample text", SampleTextUSSD, 19, "This is sample text"},
		{"balance", BalanceUSSD, 18, "Your balance = 350"},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := tlv.DecodeDefaultAlphabet(tc.packed, tc.charCount)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestMSCNumber(t *testing.T) {
	assert.Equal(t, []byte{0x91, 0x73, 0x25, 0x09, 0x00, 0x00, 0x20}, MSCNumber)
}
