package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/map-responder/com"
	"github.com/ftl/map-responder/dialogue"
	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

const (
	localModule  primitive.ModuleID = 0x2d
	peerModule   primitive.ModuleID = 0x15
	peerInstance primitive.Instance = 0x0102
)

func indication(messageType primitive.MessageType, id primitive.DialogueID, subtype byte, params ...tlv.Param) primitive.Inbound {
	return primitive.Inbound{
		Type:       messageType,
		DialogueID: id,
		Instance:   peerInstance,
		Src:        peerModule,
		Dst:        localModule,
		Params:     tlv.Encode(subtype, params...),
	}
}

func forwardSMDialogue(id primitive.DialogueID) []primitive.Inbound {
	return []primitive.Inbound{
		indication(primitive.DialogueIndication, id, byte(primitive.OpenIndication), tlv.P(primitive.TagApplicationContext, 0x04, 0x00, 0x00, 0x01, 0x00, 0x19, 0x02)),
		indication(primitive.ServiceIndication, id, byte(primitive.ForwardSMIndication), tlv.P(primitive.TagInvokeID, 0x07)),
		indication(primitive.DialogueIndication, id, byte(primitive.DelimiterIndication)),
	}
}

type setup struct {
	device    *com.InMemory
	machine   *dialogue.Machine
	metrics   *Metrics
	responder *Responder
}

func newSetup(t *testing.T, workers int) *setup {
	t.Helper()
	machine, err := dialogue.NewMachine(dialogue.Config{
		LocalModule: localModule,
		PeerModule:  peerModule,
		Dialogues:   16,
	}, nil)
	require.NoError(t, err)

	device := com.NewInMemory()
	t.Cleanup(func() { device.Close() })
	metrics := NewMetrics(prometheus.NewRegistry(), machine.Table())

	return &setup{
		device:    device,
		machine:   machine,
		metrics:   metrics,
		responder: New(machine, com.New(device)).WithMetrics(metrics).WithWorkers(workers),
	}
}

func (s *setup) run(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.responder.Run(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func (s *setup) waitForPrimitives(t *testing.T, count int) []primitive.Inbound {
	t.Helper()
	var result []primitive.Inbound
	require.Eventually(t, func() bool {
		var err error
		result, err = s.device.WrittenPrimitives()
		return err == nil && len(result) >= count
	}, time.Second, 5*time.Millisecond)
	return result
}

func TestRun_ForwardSM(t *testing.T) {
	s := newSetup(t, 1)
	id := primitive.InboundDialogue(3)
	for _, in := range forwardSMDialogue(id) {
		require.NoError(t, s.device.PreparePrimitive(in))
	}
	cancel, done := s.run(t)

	written := s.waitForPrimitives(t, 3)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	require.Len(t, written, 3)
	assert.Equal(t, primitive.DialogueRequest, written[0].Type)
	assert.Equal(t, primitive.ServiceRequest, written[1].Type)
	assert.Equal(t, primitive.DialogueRequest, written[2].Type)
	for _, out := range written {
		assert.Equal(t, id, out.DialogueID)
		assert.Equal(t, peerInstance, out.Instance)
		assert.Equal(t, localModule, out.Src)
		assert.Equal(t, peerModule, out.Dst)
	}
	assert.Equal(t, []byte{0x84, 0x0e, 0x01, 0x07, 0x00}, written[1].Params)
	assert.Equal(t, []byte{0x02, 0x07, 0x01, 0x00, 0x00}, written[2].Params)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.received.WithLabelValues("dlg-ind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.received.WithLabelValues("srv-ind")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.sent.WithLabelValues("dlg-req")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.sent.WithLabelValues("srv-req")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues(string(dialogue.Respond))))
}

func TestRun_ShardedWorkers(t *testing.T) {
	s := newSetup(t, 4)
	ids := []primitive.DialogueID{primitive.InboundDialogue(1), primitive.InboundDialogue(2), primitive.InboundDialogue(5), primitive.InboundDialogue(6)}
	for _, id := range ids {
		for _, in := range forwardSMDialogue(id) {
			require.NoError(t, s.device.PreparePrimitive(in))
		}
	}
	cancel, done := s.run(t)

	written := s.waitForPrimitives(t, 3*len(ids))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	perDialogue := make(map[primitive.DialogueID][]primitive.MessageType)
	for _, out := range written {
		perDialogue[out.DialogueID] = append(perDialogue[out.DialogueID], out.Type)
	}
	for _, id := range ids {
		assert.Equal(t, []primitive.MessageType{primitive.DialogueRequest, primitive.ServiceRequest, primitive.DialogueRequest}, perDialogue[id], id.String())
	}
	assert.Equal(t, 0, s.machine.Table().Active())
}

func TestRun_LinkClosed(t *testing.T) {
	s := newSetup(t, 1)
	_, done := s.run(t)

	s.device.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, com.ErrClosed)
	case <-time.After(time.Second):
		assert.Fail(t, "responder did not stop")
	}
}

func TestProcess_Dropped(t *testing.T) {
	tt := []struct {
		desc   string
		in     primitive.Inbound
		reason string
	}{
		{"request type", indication(primitive.DialogueRequest, primitive.InboundDialogue(1), byte(primitive.OpenIndication)), DropUnexpectedType},
		{"outgoing dialogue", indication(primitive.DialogueIndication, 0x0001, byte(primitive.OpenIndication)), DropOutgoing},
		{"out of range", indication(primitive.DialogueIndication, primitive.InboundDialogue(100), byte(primitive.OpenIndication)), DropOutOfRange},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			s := newSetup(t, 1)

			s.responder.Process(context.Background(), tc.in)

			assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.dropped.WithLabelValues(tc.reason)))
			assert.Empty(t, s.device.Written())
		})
	}
}

func TestProcess_AbortIsCounted(t *testing.T) {
	s := newSetup(t, 1)
	id := primitive.InboundDialogue(4)

	s.responder.Process(context.Background(), indication(primitive.ServiceIndication, id, byte(primitive.ForwardSMIndication), tlv.P(primitive.TagInvokeID, 0x01)))

	written := s.waitForPrimitives(t, 1)
	require.Len(t, written, 1)
	assert.Equal(t, []byte{0x04, 0x08, 0x01, 0x04, 0x00}, written[0].Params)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.aborts))
}

func TestProcess_SendFailureContinues(t *testing.T) {
	s := newSetup(t, 1)
	id := primitive.InboundDialogue(3)
	primitives := forwardSMDialogue(id)
	s.device.FailWrites(errors.New("broken"))

	for _, in := range primitives {
		s.responder.Process(context.Background(), in)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.sendFailures.WithLabelValues(errclass.EGENERIC)))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.sent.WithLabelValues("dlg-req")))
	assert.Equal(t, 0, s.machine.Table().Active())
}

func TestMetrics_ActiveDialogues(t *testing.T) {
	s := newSetup(t, 1)
	registry := prometheus.NewRegistry()
	NewMetrics(registry, s.machine.Table())

	s.responder.Process(context.Background(), forwardSMDialogue(primitive.InboundDialogue(2))[0])

	count, err := testutil.GatherAndCount(registry, "mtr_dialogues_active")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "mtr_dialogues_active" {
			assert.Equal(t, 1.0, family.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestNilMetrics(t *testing.T) {
	machine, err := dialogue.NewMachine(dialogue.Config{LocalModule: localModule, PeerModule: peerModule, Dialogues: 16}, nil)
	require.NoError(t, err)
	device := com.NewInMemory()
	defer device.Close()
	responder := New(machine, com.New(device)).WithWorkers(0)

	assert.Equal(t, 1, responder.workers)
	assert.NotPanics(t, func() {
		responder.Process(context.Background(), forwardSMDialogue(primitive.InboundDialogue(2))[0])
	})
}
