package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"prior-auth-be/pkg/workflow"

	"github.com/nats-io/nats.go"
)

// errStreamClosed terminates Recv once the stream is torn down locally.
var errStreamClosed = errors.New("fragment stream closed")

// fragmentStream adapts a NATS subject subscription to workflow.StageStream.
// Fragments are buffered so a slow consumer does not block the NATS callback.
type fragmentStream struct {
	frags chan *workflow.StreamFragment
	done  chan struct{}
	once  sync.Once
	sub   *nats.Subscription
}

func newFragmentStream() *fragmentStream {
	return &fragmentStream{
		frags: make(chan *workflow.StreamFragment, 64),
		done:  make(chan struct{}),
	}
}

func (s *fragmentStream) onMessage(msg *nats.Msg) {
	var frag workflow.StreamFragment
	if err := json.Unmarshal(msg.Data, &frag); err != nil {
		frag = workflow.StreamFragment{
			Kind:  workflow.FragmentError,
			Error: fmt.Sprintf("malformed fragment: %v", err),
		}
	}

	select {
	case s.frags <- &frag:
	case <-s.done:
	}
}

func (s *fragmentStream) Recv() (*workflow.StreamFragment, error) {
	select {
	case frag := <-s.frags:
		return frag, nil
	case <-s.done:
		return nil, errStreamClosed
	}
}

func (s *fragmentStream) Close() error {
	var err error
	s.once.Do(func() {
		if s.sub != nil {
			err = s.sub.Unsubscribe()
		}
		close(s.done)
	})
	return err
}
