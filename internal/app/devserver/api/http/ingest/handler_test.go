package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/sync"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Submit(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error) {
	args := m.Called(ctx, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.SubmitResponse), args.Error(1)
}

func TestHandler_submit(t *testing.T) {
	tests := []struct {
		name       string
		response   *sync.SubmitResponse
		serviceErr error
		wantStatus string
		wantErr    bool
	}{
		{
			name:       "accepted order",
			response:   &sync.SubmitResponse{Status: sync.StatusSuccess, OrderNumber: "W-001"},
			wantStatus: sync.StatusSuccess,
		},
		{
			name: "conflict verdict passes through",
			response: &sync.SubmitResponse{
				Status: sync.StatusConflict,
				Errors: []string{"duplicate operation with different content"},
			},
			wantStatus: sync.StatusConflict,
		},
		{
			name:       "server failure becomes 500",
			serviceErr: errors.New("database down"),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			service.On("Submit", mock.Anything, mock.Anything).Return(tt.response, tt.serviceErr)
			handler := NewHandler(service, slog.Default(), huma.Middlewares{})

			input := &submitInput{Body: sync.Envelope{OperationID: "op-1"}}
			output, err := handler.submit(context.Background(), input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, output.Body.Status)
			service.AssertExpectations(t)
		})
	}
}
