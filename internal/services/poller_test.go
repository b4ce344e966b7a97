package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"binderflow/backend/internal/logging"
)

type MockPredictionClient struct {
	mock.Mock
}

func (m *MockPredictionClient) Submit(ctx context.Context, spec JobSpec) (SubmitResult, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(SubmitResult), args.Error(1)
}

func (m *MockPredictionClient) Poll(ctx context.Context, handle JobHandle) (PollResult, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(PollResult), args.Error(1)
}

func (m *MockPredictionClient) Fetch(ctx context.Context, handle JobHandle) (Payload, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(Payload), args.Error(1)
}

var (
	fastPolicy = PollPolicy{Interval: time.Millisecond, MaxAttempts: 5}
	handle     = JobHandle{ID: "req-1", Endpoint: "http://status", Model: ModelAlphaFold2}
	afSpec     = JobSpec{Model: ModelAlphaFold2, Sequence: "MKTAYIAKQR"}
)

func TestAwaitResult_Immediate(t *testing.T) {
	client := new(MockPredictionClient)
	payload := Payload{Structures: []string{"ATOM"}}
	client.On("Submit", mock.Anything, afSpec).Return(Immediate(payload), nil)

	got, err := AwaitResult(context.Background(), client, afSpec, fastPolicy, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	client.AssertNotCalled(t, "Poll", mock.Anything, mock.Anything)
}

func TestAwaitResult_SubmitError(t *testing.T) {
	client := new(MockPredictionClient)
	client.On("Submit", mock.Anything, afSpec).Return(SubmitResult{}, &ServiceError{Model: ModelAlphaFold2, StatusCode: 400, Message: "bad sequence"})

	_, err := AwaitResult(context.Background(), client, afSpec, fastPolicy, logging.Nop())
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, err.Error(), "bad sequence")
}

func TestAwaitResult_PendingThenCompleted(t *testing.T) {
	client := new(MockPredictionClient)
	payload := Payload{Structures: []string{"ATOM 1", "ATOM 2"}}
	client.On("Submit", mock.Anything, afSpec).Return(Accepted(handle), nil)
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollPending}, nil).Twice()
	client.On("Poll", mock.Anything, handle).Return(PollResult{}, errors.New("connection reset")).Once()
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollCompleted, Payload: &payload}, nil).Once()

	got, err := AwaitResult(context.Background(), client, afSpec, fastPolicy, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	client.AssertNumberOfCalls(t, "Poll", 4)
}

func TestAwaitJob_CompletedWithoutPayloadFetches(t *testing.T) {
	client := new(MockPredictionClient)
	payload := Payload{Text: ">seq\nMKT"}
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollCompleted}, nil).Once()
	client.On("Fetch", mock.Anything, handle).Return(payload, nil).Once()

	got, err := AwaitJob(context.Background(), client, handle, fastPolicy, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestAwaitJob_ServiceFailureStopsPolling(t *testing.T) {
	client := new(MockPredictionClient)
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollFailed, Message: "out of memory"}, nil).Once()

	_, err := AwaitJob(context.Background(), client, handle, fastPolicy, logging.Nop())
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "out of memory", svcErr.Message)

	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
	client.AssertNumberOfCalls(t, "Poll", 1)
}

func TestAwaitJob_TimeoutAfterMaxAttempts(t *testing.T) {
	client := new(MockPredictionClient)
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollPending}, nil)

	_, err := AwaitJob(context.Background(), client, handle, fastPolicy, logging.Nop())
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 5, timeout.Attempts)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), "shorter input")
	client.AssertNumberOfCalls(t, "Poll", 5)
}

func TestAwaitJob_TransientErrorsExhaustToTimeout(t *testing.T) {
	client := new(MockPredictionClient)
	client.On("Poll", mock.Anything, handle).Return(PollResult{}, errors.New("503"))

	_, err := AwaitJob(context.Background(), client, handle, PollPolicy{Interval: time.Millisecond, MaxAttempts: 3}, logging.Nop())
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.EqualError(t, timeout.LastErr, "503")
	client.AssertNumberOfCalls(t, "Poll", 3)
}

func TestAwaitJob_Cancelled(t *testing.T) {
	client := new(MockPredictionClient)
	ctx, cancel := context.WithCancel(context.Background())
	client.On("Poll", mock.Anything, handle).Return(PollResult{State: PollPending}, nil).Run(func(mock.Arguments) { cancel() })

	_, err := AwaitJob(ctx, client, handle, PollPolicy{Interval: time.Hour, MaxAttempts: 100}, logging.Nop())
	require.ErrorIs(t, err, context.Canceled)
	client.AssertNumberOfCalls(t, "Poll", 1)
}

func TestPollPolicy_Ceiling(t *testing.T) {
	assert.Equal(t, 30*time.Minute, PollPolicy{Interval: 10 * time.Second, MaxAttempts: 180}.Ceiling())
	assert.Equal(t, time.Second, PollPolicy{Interval: time.Second}.Ceiling())
}
