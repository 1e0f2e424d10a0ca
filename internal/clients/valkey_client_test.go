package clients

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func newTestValkey(t *testing.T) (*ValkeyClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	vc, err := newValkeyClient(context.Background(), valkey.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	}, time.Hour)
	require.NoError(t, err)
	t.Cleanup(vc.Close)
	return vc, mr
}

func TestValkeyClient_SeenSet(t *testing.T) {
	vc, mr := newTestValkey(t)
	ctx := context.Background()

	seen, err := vc.IsPostProcessed(ctx, "reddit", "reddit#t3_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, vc.MarkProcessed(ctx, "reddit", "reddit#t3_1"))

	seen, err = vc.IsPostProcessed(ctx, "reddit", "reddit#t3_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = vc.IsPostProcessed(ctx, "twitter", "reddit#t3_1")
	require.NoError(t, err)
	assert.False(t, seen)

	assert.True(t, mr.Exists("myriad:seen:reddit"))
	assert.Equal(t, time.Hour, mr.TTL("myriad:seen:reddit"))
}

func TestValkeyClient_Ping(t *testing.T) {
	vc, _ := newTestValkey(t)
	assert.NoError(t, vc.Ping(context.Background()))
}
