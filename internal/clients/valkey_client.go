package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/myriadflow/config"
	"github.com/valkey-io/valkey-go"
)

const VALKEY_SEEN_KEY_PREFIX = "myriad:seen:"

// ValkeyClient keeps a per-platform seen-set of committed natural keys.
type ValkeyClient struct {
	client valkey.Client
	opts   valkey.ClientOption
	ttl    time.Duration
	mu     sync.Mutex
}

func NewValkeyClient(ctx context.Context, cfg config.ValkeyConfig) (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return newValkeyClient(ctx, opts, cfg.SeenTTL)
}

func newValkeyClient(ctx context.Context, opts valkey.ClientOption, ttl time.Duration) (*ValkeyClient, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client, err := connectValkey(ctx, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{client: client, opts: opts, ttl: ttl}, nil
}

func connectValkey(ctx context.Context, opts valkey.ClientOption) (valkey.Client, error) {
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) conn() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.client
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")

	client, err := connectValkey(context.Background(), vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed, keeping previous client",
			slog.String("error", err.Error()))
		return
	}
	vc.client.Close()
	vc.client = client
	slog.Info("[ValkeyClient] Successfully connected to valkey")
}

func (vc *ValkeyClient) Ping(ctx context.Context) error {
	c := vc.conn()
	return c.Do(ctx, c.B().Ping().Build()).Error()
}

func (vc *ValkeyClient) Close() {
	vc.conn().Close()
}

func (vc *ValkeyClient) MarkProcessed(ctx context.Context, source string, key string) error {
	c := vc.conn()
	sourceKey := keyFromSource(source)
	completed := []valkey.Completed{
		c.B().Sadd().Key(sourceKey).Member(key).Build(),
		c.B().Expire().Key(sourceKey).Seconds(int64(vc.ttl / time.Second)).Build(),
	}

	responses := vc.DoMultiWithRetry(ctx, completed, 3)
	for _, res := range responses {
		if err := res.Error(); err != nil {
			return err
		}
	}

	slog.Debug("[ValkeyClient] Marked as processed",
		slog.String("source", source),
		slog.String("key", key))
	return nil
}

func (vc *ValkeyClient) IsPostProcessed(ctx context.Context, source string, key string) (bool, error) {
	c := vc.conn()
	res := vc.DoWithRetry(ctx, c.B().Sismember().Key(keyFromSource(source)).Member(key).Build(), 3)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return false, err
	}
	return res.AsBool()
}

func keyFromSource(source string) string {
	return VALKEY_SEEN_KEY_PREFIX + source
}

func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		results = vc.conn().DoMulti(ctx, completed...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] Do Multi failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr || ctx.Err() != nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}

	return results
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.conn().Do(ctx, completed)
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) || ctx.Err() != nil {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
