package client

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/pkg/ratelimit"
)

// Client CLOB 客户端
// 托管模式：不持有任何私钥，签名在上层完成，這里只负责传输与 L2 认证头
type Client struct {
	host        string
	chainID     types.Chain
	read        *resty.Client // 只读请求：允许有限重试
	submit      *resty.Client // 订单提交：单次请求，绝不自动重试
	rateLimiter *ratelimit.Manager
}

// NewClient 创建新的 CLOB 客户端
func NewClient(host string, chainID types.Chain) *Client {
	host = strings.TrimSuffix(host, "/")

	// 只读客户端：幂等请求允许重试，429 时遵循 Retry-After
	read := resty.New().
		SetBaseURL(host).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp.StatusCode() == 429 {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return d, nil
					}
				}
				return 5 * time.Second, nil
			}
			return 0, nil
		})

	// 提交客户端：订单提交不是幂等操作，重试可能导致重复成交
	submit := resty.New().
		SetBaseURL(host).
		SetTimeout(30 * time.Second)

	return &Client{
		host:        host,
		chainID:     chainID,
		read:        read,
		submit:      submit,
		rateLimiter: ratelimit.NewManager(),
	}
}

// GetHost 获取主机地址
func (c *Client) GetHost() string {
	return c.host
}

// GetChainID 获取链 ID
func (c *Client) GetChainID() types.Chain {
	return c.chainID
}

func (c *Client) newReadRequest() *resty.Request {
	r := c.read.R()
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", "polyterm/clob-client")
	return r
}

func (c *Client) newSubmitRequest() *resty.Request {
	r := c.submit.R()
	r.SetHeader("Accept", "application/json")
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("User-Agent", "polyterm/clob-client")
	return r
}
