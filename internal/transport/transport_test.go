package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopback_Transact(t *testing.T) {
	var gotCode uint32
	var gotData []byte
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, code uint32, data []byte) ([]byte, error) {
		gotCode = code
		gotData = data
		return []byte("ok"), nil
	}))

	buf := []byte{1, 2, 3}
	reply, err := lb.Transact(context.Background(), 4, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), reply)
	assert.Equal(t, uint32(4), gotCode)

	// The handler received a copy.
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, gotData)
}

func TestLoopback_HandlerErrorIsRejected(t *testing.T) {
	cause := errors.New("bad token")
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, code uint32, data []byte) ([]byte, error) {
		return nil, cause
	}))

	_, err := lb.Transact(context.Background(), 2, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnavailable)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, uint32(2), callErr.Code)
}

func TestLoopback_CancelledContextIsUnavailable(t *testing.T) {
	called := false
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, code uint32, data []byte) ([]byte, error) {
		called = true
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lb.Transact(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCallError_Message(t *testing.T) {
	err := &CallError{Code: 3, Kind: ErrUnavailable}
	assert.Equal(t, "transaction 3: remote unavailable", err.Error())

	err = &CallError{Code: 3, Kind: ErrRejected, Err: fmt.Errorf("boom")}
	assert.Equal(t, "transaction 3: remote rejected transaction: boom", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "service error",
			err:      dbus.Error{Name: RejectedErrorName, Body: []interface{}{"token mismatch"}},
			expected: ErrRejected,
		},
		{
			name:     "service error pointer",
			err:      dbus.NewError(RejectedErrorName, nil),
			expected: ErrRejected,
		},
		{
			name:     "no reply",
			err:      dbus.Error{Name: "org.freedesktop.DBus.Error.NoReply"},
			expected: ErrUnavailable,
		},
		{
			name:     "name gone",
			err:      dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"},
			expected: ErrUnavailable,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: ErrUnavailable,
		},
		{
			name:     "closed connection",
			err:      dbus.ErrClosed,
			expected: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classify(tt.err))
		})
	}
}

func TestExportedObject_Transact(t *testing.T) {
	obj := &exportedObject{
		handler: HandlerFunc(func(ctx context.Context, code uint32, data []byte) ([]byte, error) {
			if code == 1 {
				return nil, nil
			}
			return nil, errors.New("unknown transaction")
		}),
		logger: discardLogger(),
	}

	reply, dbusErr := obj.Transact(1, nil)
	assert.Nil(t, dbusErr)
	assert.NotNil(t, reply)
	assert.Empty(t, reply)

	_, dbusErr = obj.Transact(9, nil)
	require.NotNil(t, dbusErr)
	assert.Equal(t, RejectedErrorName, dbusErr.Name)
	assert.Equal(t, []interface{}{"unknown transaction"}, dbusErr.Body)
}

func TestDBusBinder_TimeoutIsUnavailable(t *testing.T) {
	obj := &hangingObject{}
	b := newTestBinder(obj, 50*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, b.Timeout())

	start := time.Now()
	reply, err := b.Transact(context.Background(), 2, []byte{1, 2, 3})
	elapsed := time.Since(start)

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrRejected)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, uint32(2), callErr.Code)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	assert.Equal(t, "org.anbox.PlatformService.Transact", obj.method)
	assert.Equal(t, []any{uint32(2), []byte{1, 2, 3}}, obj.args)
}

func TestDBusBinder_SetTimeoutAppliesToNextCall(t *testing.T) {
	b := newTestBinder(&hangingObject{}, time.Hour)

	b.SetTimeout(20 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, b.Timeout())

	done := make(chan error, 1)
	go func() {
		_, err := b.Transact(context.Background(), 5, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("call was not bounded by the new timeout")
	}
}

func TestDBusBinder_CallerDeadlineWithoutTimeout(t *testing.T) {
	b := newTestBinder(&hangingObject{}, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := b.Transact(ctx, 4, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDBusBinder_Reply(t *testing.T) {
	b := newTestBinder(&replyObject{reply: []byte{9, 8}}, time.Second)

	reply, err := b.Transact(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, reply)
}
