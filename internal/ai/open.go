package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportGRPC  = "grpc"
	TransportGenAI = "genai"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Options selects and configures a Service.
type Options struct {
	Transport      string
	BaseURL        string
	GRPCAddr       string
	APIKey         string
	Model          string
	RequestTimeout time.Duration

	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string
}

// Open builds the configured Service. The returned closer releases
// connections and is never nil.
func Open(ctx context.Context, opts Options) (Service, func() error, error) {
	switch opts.CacheBackend {
	case "", CacheNone, CacheMemory, CacheRedis:
	default:
		return nil, nop, fmt.Errorf("unknown ai cache backend %q", opts.CacheBackend)
	}

	var (
		svc     Service
		closers []func() error
	)
	switch opts.Transport {
	case "", TransportHTTP:
		client, err := NewHTTPClient(opts.BaseURL, opts.APIKey, &http.Client{Timeout: opts.RequestTimeout})
		if err != nil {
			return nil, nop, err
		}
		svc = client
	case TransportGRPC:
		client, err := DialGRPC(opts.GRPCAddr)
		if err != nil {
			return nil, nop, err
		}
		svc = client
		closers = append(closers, client.Close)
	case TransportGenAI:
		client, err := NewGenAIService(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, nop, err
		}
		svc = client
	default:
		return nil, nop, fmt.Errorf("unknown ai transport %q", opts.Transport)
	}

	switch opts.CacheBackend {
	case "", CacheNone:
	case CacheMemory:
		svc = NewCached(svc, NewMemoryCache(opts.CacheSize, opts.CacheTTL))
	case CacheRedis:
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		svc = NewCached(svc, NewRedisCache(rdb, "", opts.CacheTTL))
		closers = append(closers, rdb.Close)
	}

	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return svc, closeAll, nil
}

func nop() error { return nil }
