package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/savings-fund-ledger/internal/domain/event"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessEvent(ctx context.Context, e *event.LedgerEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestLedgerEventHandler_HandleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	eventID := uuid.New()
	validPayload := []byte(`{"event_id":"` + eventID.String() + `","event_type":"PAYMENT_RECEIVED","personal_code":"38812121215","amount":"100.00","correlation_id":"c-1"}`)
	brokenPayload := []byte(`{"event_id":`)

	tests := []struct {
		name        string
		value       []byte
		setupMocks  func(p *MockProcessingService, d *MockDeadLetterPublisher)
		expectError bool
	}{
		{
			name:  "decoded and processed",
			value: validPayload,
			setupMocks: func(p *MockProcessingService, d *MockDeadLetterPublisher) {
				p.On("ProcessEvent", ctx, mock.MatchedBy(func(e *event.LedgerEvent) bool {
					return e.EventID == eventID && e.EventType == event.TypePaymentReceived && e.Amount.String() == "100"
				})).Return(nil).Once()
			},
		},
		{
			name:  "processing error is returned",
			value: validPayload,
			setupMocks: func(p *MockProcessingService, d *MockDeadLetterPublisher) {
				p.On("ProcessEvent", ctx, mock.Anything).Return(errors.New("database down")).Once()
			},
			expectError: true,
		},
		{
			name:  "undecodable message goes to DLQ",
			value: brokenPayload,
			setupMocks: func(p *MockProcessingService, d *MockDeadLetterPublisher) {
				d.On("PublishToDLQ", ctx, "key-1", brokenPayload, mock.MatchedBy(func(reason string) bool {
					return strings.HasPrefix(reason, "undecodable ledger event")
				})).Return(nil).Once()
			},
		},
		{
			name:  "undecodable message is retried when DLQ fails",
			value: brokenPayload,
			setupMocks: func(p *MockProcessingService, d *MockDeadLetterPublisher) {
				d.On("PublishToDLQ", ctx, "key-1", brokenPayload, mock.Anything).Return(errors.New("kafka down")).Once()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processing := new(MockProcessingService)
			dlq := new(MockDeadLetterPublisher)
			tt.setupMocks(processing, dlq)

			handler := NewLedgerEventHandler(logger, processing, dlq)
			err := handler.HandleMessage(ctx, []byte("key-1"), tt.value)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			processing.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}
