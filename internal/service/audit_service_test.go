package service

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditFixture(t *testing.T) (IAuditService, IPublisherService, *fakeUowFactory) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	factory := newFakeUowFactory()
	svc := NewAuditService(pubSub, "CASE_AUDIT", factory)
	require.NoError(t, svc.Consume(context.Background()))

	return svc, NewPublisherService("CASE_AUDIT", pubSub), factory
}

func TestAuditBusRoundTrip(t *testing.T) {
	svc, pub, _ := newAuditFixture(t)
	caseID := uuid.New()

	payload, err := encodeAuditMessage(caseID, "policy_analysis", "CASE_STAGE_APPROVED", "reviewer", "approved intake")
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), payload))

	require.Eventually(t, func() bool {
		trace, err := svc.GetTrace(context.Background(), caseID)
		return err == nil && len(trace) == 1
	}, 2*time.Second, 10*time.Millisecond)

	trace, err := svc.GetTrace(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, caseID, trace[0].CaseID)
	assert.Equal(t, "CASE_STAGE_APPROVED", trace[0].EventType)
	assert.Equal(t, "approved intake", trace[0].Detail)
}

func TestAuditTraceScopedToCase(t *testing.T) {
	svc, pub, _ := newAuditFixture(t)
	first := uuid.New()
	second := uuid.New()

	for _, id := range []uuid.UUID{first, second} {
		payload, err := encodeAuditMessage(id, "intake", "CASE_CREATED", "system", "case opened at intake")
		require.NoError(t, err)
		require.NoError(t, pub.Publish(context.Background(), payload))
	}

	require.Eventually(t, func() bool {
		trace, err := svc.GetTrace(context.Background(), first)
		return err == nil && len(trace) == 1
	}, 2*time.Second, 10*time.Millisecond)

	trace, err := svc.GetTrace(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, trace, 1)
	assert.Equal(t, first, trace[0].CaseID)
}

func TestAuditMalformedMessageIsDropped(t *testing.T) {
	svc, pub, factory := newAuditFixture(t)
	caseID := uuid.New()

	require.NoError(t, pub.Publish(context.Background(), []byte("not json")))

	payload, err := encodeAuditMessage(caseID, "intake", "CASE_CREATED", "system", "case opened at intake")
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), payload))

	require.Eventually(t, func() bool {
		trace, err := svc.GetTrace(context.Background(), caseID)
		return err == nil && len(trace) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the malformed payload never became a row
	factory.audits.mu.Lock()
	defer factory.audits.mu.Unlock()
	assert.Len(t, factory.audits.events, 1)
}
