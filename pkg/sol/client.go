package sol

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// Client represents a Solana client that wraps RPC access behind a
// shared rate limiter
type Client struct {
	rpcClient   *rpc.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Solana client with custom rate limiting
func NewClient(endpoint string, reqLimitPerSecond int) *Client {
	return &Client{
		rpcClient:   rpc.New(endpoint),
		rateLimiter: NewRateLimiter(reqLimitPerSecond),
	}
}
