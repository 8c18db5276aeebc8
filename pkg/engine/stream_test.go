package engine

import (
	"encoding/json"
	"testing"

	"prior-auth-be/pkg/workflow"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentStreamDeliversInOrder(t *testing.T) {
	s := newFragmentStream()

	first, _ := json.Marshal(workflow.StreamFragment{Kind: workflow.FragmentPartial, EntityKey: "criterion-1"})
	second, _ := json.Marshal(workflow.StreamFragment{Kind: workflow.FragmentFinal})
	s.onMessage(&nats.Msg{Data: first})
	s.onMessage(&nats.Msg{Data: second})

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, workflow.FragmentPartial, frag.Kind)
	assert.Equal(t, "criterion-1", frag.EntityKey)

	frag, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, workflow.FragmentFinal, frag.Kind)
}

func TestFragmentStreamMalformedPayload(t *testing.T) {
	s := newFragmentStream()
	s.onMessage(&nats.Msg{Data: []byte("{not json")})

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, workflow.FragmentError, frag.Kind)
	assert.Contains(t, frag.Error, "malformed fragment")
}

func TestFragmentStreamRecvAfterClose(t *testing.T) {
	s := newFragmentStream()
	require.NoError(t, s.Close())

	_, err := s.Recv()
	assert.ErrorIs(t, err, errStreamClosed)

	// Close is idempotent.
	assert.NoError(t, s.Close())
}

func TestFragmentStreamMessageAfterCloseDoesNotBlock(t *testing.T) {
	s := newFragmentStream()
	require.NoError(t, s.Close())

	payload, _ := json.Marshal(workflow.StreamFragment{Kind: workflow.FragmentPartial})
	done := make(chan struct{})
	go func() {
		s.onMessage(&nats.Msg{Data: payload})
		close(done)
	}()
	<-done
}
