package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/polyterm/polyterm/clob/signing"
	"github.com/polyterm/polyterm/clob/types"
)

// PostOrder 提交已签名订单
// address 是订单 maker 的钱包地址（L2 头使用），creds 是该用户的交易所 API 凭证
// 注意：这里对交易所只发起一次请求。部分提交的订单重试会有重复成交风险，
// 是否重试必须由调用方决定
func (c *Client) PostOrder(
	ctx context.Context,
	address string,
	creds *types.ApiKeyCreds,
	order *types.SignedOrder,
	orderType types.OrderType,
	deferExec bool,
) (*types.OrderResponse, error) {
	if creds == nil || creds.Key == "" {
		return nil, errors.New("缺少 API 凭证，无法进行 L2 认证")
	}

	if err := c.rateLimiter.Wait(ctx, "clob:order:post"); err != nil {
		return nil, errors.Wrap(err, "速率限制等待失败")
	}

	payload := types.NewOrder{
		Order:     *order,
		Owner:     creds.Key,
		OrderType: orderType,
		DeferExec: deferExec,
	}

	// HMAC 签名覆盖请求体，必须序列化一次后原样发送
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "序列化订单载荷失败")
	}
	bodyStr := string(bodyBytes)

	headers, err := signing.CreateL2Headers(address, creds, &types.L2HeaderArgs{
		Method:      http.MethodPost,
		RequestPath: EndpointPostOrder,
		Body:        &bodyStr,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "创建 L2 认证头失败")
	}

	resp, err := c.newSubmitRequest().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"POLY_ADDRESS":    headers.PolyAddress,
			"POLY_SIGNATURE":  headers.PolySignature,
			"POLY_TIMESTAMP":  headers.PolyTimestamp,
			"POLY_API_KEY":    headers.PolyAPIKey,
			"POLY_PASSPHRASE": headers.PolyPassphrase,
		}).
		SetBody(bodyBytes).
		Post(EndpointPostOrder)
	if err != nil {
		// 传输层错误：不知道订单是否已被接受，原样上抛由调用方处理
		return nil, errors.Wrap(err, "提交订单失败")
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		var errResp types.ErrorResponse
		_ = json.Unmarshal(resp.Body(), &errResp)
		return nil, classifyRejection(resp.StatusCode(), errResp.ErrorCode, errResp.Error)
	}

	var orderResp types.OrderResponse
	if err := json.Unmarshal(resp.Body(), &orderResp); err != nil {
		return nil, errors.Wrap(err, "解析订单响应失败")
	}
	if !orderResp.Success && orderResp.ErrorMsg != "" {
		return nil, classifyRejection(resp.StatusCode(), "", orderResp.ErrorMsg)
	}

	return &orderResp, nil
}

// FetchNonce 获取钱包地址在交易所的当前 nonce
// 新钱包可能没有 nonce 记录：404 或字段缺失一律按 0 处理，不报错
func (c *Client) FetchNonce(ctx context.Context, address string) (int64, error) {
	if err := c.rateLimiter.Wait(ctx, "clob:nonce:get"); err != nil {
		return 0, errors.Wrap(err, "速率限制等待失败")
	}

	resp, err := c.newReadRequest().
		SetContext(ctx).
		SetQueryParam("address", address).
		Get(EndpointGetNonce)
	if err != nil {
		return 0, errors.Wrap(err, "获取 nonce 失败")
	}

	if resp.StatusCode() == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, errors.Errorf("nonce 端点返回 HTTP %d", resp.StatusCode())
	}

	var nonceResp types.NonceResponse
	if err := json.Unmarshal(resp.Body(), &nonceResp); err != nil {
		// 字段缺失或响应非 JSON：按 0 处理
		return 0, nil
	}
	return nonceResp.Nonce, nil
}
