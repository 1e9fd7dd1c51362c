package signing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/polyterm/polyterm/clob/types"
)

// CreateL2Headers 创建 L2 认证头（API 密钥验证）
// 托管模式下签名者地址来自钱包记录，不需要在这里接触私钥
func CreateL2Headers(
	address string,
	creds *types.ApiKeyCreds,
	args *types.L2HeaderArgs,
	timestamp *int64,
) (*types.L2PolyHeader, error) {
	ts := time.Now().Unix()
	if timestamp != nil {
		ts = *timestamp
	}

	sig, err := BuildPolyHmacSignature(
		creds.Secret,
		ts,
		args.Method,
		args.RequestPath,
		args.Body,
	)
	if err != nil {
		return nil, fmt.Errorf("构建 HMAC 签名失败: %w", err)
	}

	return &types.L2PolyHeader{
		PolyAddress:    address,
		PolySignature:  sig,
		PolyTimestamp:  strconv.FormatInt(ts, 10),
		PolyAPIKey:     creds.Key,
		PolyPassphrase: creds.Passphrase,
	}, nil
}
