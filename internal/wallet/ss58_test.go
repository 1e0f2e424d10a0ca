package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSS58Deriver_Deterministic(t *testing.T) {
	d, err := NewSS58Deriver(DefaultSS58Prefix)
	require.NoError(t, err)
	ctx := context.Background()

	a1, err := d.Derive(ctx, "post-1")
	require.NoError(t, err)
	a2, err := d.Derive(ctx, "post-1")
	require.NoError(t, err)
	b, err := d.Derive(ctx, "post-2")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestSS58_RoundTrip(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}

	for _, prefix := range []uint16{0, 42, 63, 64, DefaultSS58Prefix, 16383} {
		addr, err := EncodeSS58(pub, prefix)
		require.NoError(t, err)

		gotPrefix, gotPub, err := DecodeSS58(addr)
		require.NoError(t, err, "prefix %d", prefix)
		assert.Equal(t, prefix, gotPrefix)
		assert.Equal(t, pub, gotPub)
	}
}

func TestSS58_Errors(t *testing.T) {
	_, err := NewSS58Deriver(16384)
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	_, _, err = DecodeSS58("abc")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	addr, err := EncodeSS58(make([]byte, 32), DefaultSS58Prefix)
	require.NoError(t, err)
	corrupted := []byte(addr)
	if corrupted[len(corrupted)-1] == '2' {
		corrupted[len(corrupted)-1] = '3'
	} else {
		corrupted[len(corrupted)-1] = '2'
	}
	_, _, err = DecodeSS58(string(corrupted))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSS58Deriver_CancelledContext(t *testing.T) {
	d, err := NewSS58Deriver(DefaultSS58Prefix)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Derive(ctx, "post-1")
	assert.ErrorIs(t, err, context.Canceled)
}
