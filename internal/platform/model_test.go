package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRotation(t *testing.T) {
	tests := []struct {
		degrees  int
		expected Rotation
		wantErr  bool
	}{
		{0, Rotation0, false},
		{90, Rotation90, false},
		{180, Rotation180, false},
		{270, Rotation270, false},
		{45, Rotation0, true},
		{360, Rotation0, true},
	}

	for _, tt := range tests {
		got, err := ParseRotation(tt.degrees)
		if tt.wantErr {
			assert.Error(t, err, "degrees=%d", tt.degrees)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
		assert.Equal(t, tt.degrees, got.Degrees())
		assert.True(t, got.Valid())
	}

	assert.False(t, Rotation(4).Valid())
	assert.False(t, Rotation(-1).Valid())
}

func TestTransactionCodes(t *testing.T) {
	assert.Equal(t, Transaction(1), TransactionBootFinished)
	assert.Equal(t, Transaction(2), TransactionUpdateWindowState)
	assert.Equal(t, Transaction(3), TransactionUpdatePackageList)
	assert.Equal(t, Transaction(4), TransactionSetClipboardData)
	assert.Equal(t, Transaction(5), TransactionGetClipboardData)

	assert.Equal(t, "UpdateWindowState", TransactionUpdateWindowState.String())
	assert.Equal(t, "Transaction(99)", Transaction(99).String())
}

func TestFrame_Size(t *testing.T) {
	f := Frame{Left: 10, Top: 20, Right: 110, Bottom: 70}
	assert.Equal(t, int32(100), f.Width())
	assert.Equal(t, int32(50), f.Height())
}
