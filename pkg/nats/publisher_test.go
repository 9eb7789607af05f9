package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStream struct {
	mock.Mock
}

func (m *mockStream) Publish(ctx context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, payload)
	var ack *jetstream.PubAck
	if args.Get(0) != nil {
		ack = args.Get(0).(*jetstream.PubAck)
	}
	return ack, args.Error(1)
}

type testEvent struct {
	payload []byte
	err     error
}

func (e testEvent) Subject() string          { return "orders.placed" }
func (e testEvent) Payload() ([]byte, error) { return e.payload, e.err }

func Test_NatsPublisher_Publish(t *testing.T) {
	errBroker := errors.New("broker down")
	errPayload := errors.New("bad payload")
	testCases := []struct {
		name        string
		event       testEvent
		setupMock   func(m *mockStream)
		expectError error
	}{
		{
			name:  "Success",
			event: testEvent{payload: []byte(`{"order_id":"1"}`)},
			setupMock: func(m *mockStream) {
				m.On("Publish", mock.Anything, "orders.placed", []byte(`{"order_id":"1"}`)).
					Return(&jetstream.PubAck{Stream: "ORDERS", Sequence: 1}, nil).Once()
			},
		},
		{
			name:  "Error - broker failure",
			event: testEvent{payload: []byte(`{}`)},
			setupMock: func(m *mockStream) {
				m.On("Publish", mock.Anything, "orders.placed", []byte(`{}`)).Return(nil, errBroker).Once()
			},
			expectError: errBroker,
		},
		{
			name:        "Error - payload failure",
			event:       testEvent{err: errPayload},
			setupMock:   func(m *mockStream) {},
			expectError: errPayload,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			stream := new(mockStream)
			tc.setupMock(stream)
			publisher := NewNatsPublisher(stream)

			// when
			err := publisher.Publish(context.Background(), tc.event)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
			stream.AssertExpectations(t)
		})
	}
}
