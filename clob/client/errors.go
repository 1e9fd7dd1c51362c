package client

import "fmt"

// RejectionCategory 交易所拒单的稳定分类（面向上层/用户）
type RejectionCategory string

const (
	RejectionTickSize        RejectionCategory = "TICK_SIZE"         // 价格不满足最小 tick 要求
	RejectionMinSize         RejectionCategory = "MIN_SIZE"          // 订单规模低于最小要求
	RejectionDuplicate       RejectionCategory = "DUPLICATE"         // 重复订单
	RejectionBalance         RejectionCategory = "BALANCE_ALLOWANCE" // 余额或授权不足
	RejectionExpiration      RejectionCategory = "EXPIRATION"        // 过期时间非法
	RejectionExecution       RejectionCategory = "EXECUTION"         // 撮合执行错误
	RejectionDelayed         RejectionCategory = "DELAYED"           // 市场延迟撮合
	RejectionFOKNotFilled    RejectionCategory = "FOK_NOT_FILLED"    // FOK 未能全部成交
	RejectionMarketNotReady  RejectionCategory = "MARKET_NOT_READY"  // 市场尚未开放下单
	RejectionUnknown         RejectionCategory = "UNKNOWN"           // 未识别的错误码，保留原始码用于诊断
	RejectionExchangeOffline RejectionCategory = "EXCHANGE_OFFLINE"  // 5xx：交易所不可用
)

// rejectionByCode 交易所错误码 -> 稳定分类
// 未在表中的错误码归为 UNKNOWN，原始码透传
var rejectionByCode = map[string]RejectionCategory{
	"INVALID_ORDER_MIN_TICK_SIZE":      RejectionTickSize,
	"INVALID_ORDER_MIN_SIZE":           RejectionMinSize,
	"INVALID_ORDER_DUPLICATED":         RejectionDuplicate,
	"INVALID_ORDER_NOT_ENOUGH_BALANCE": RejectionBalance,
	"INVALID_ORDER_EXPIRATION":         RejectionExpiration,
	"EXECUTION_ERROR":                  RejectionExecution,
	"DELAYING_ORDER_ERROR":             RejectionDelayed,
	"FOK_ORDER_NOT_FILLED_ERROR":       RejectionFOKNotFilled,
	"MARKET_NOT_READY":                 RejectionMarketNotReady,
}

// RejectionError 交易所拒单错误（携带映射分类与原始错误码）
type RejectionError struct {
	Category   RejectionCategory
	RawCode    string
	Message    string
	StatusCode int
}

func (e *RejectionError) Error() string {
	if e.RawCode != "" {
		return fmt.Sprintf("exchange rejected order: %s (code=%s, http=%d): %s", e.Category, e.RawCode, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("exchange rejected order: %s (http=%d): %s", e.Category, e.StatusCode, e.Message)
}

// classifyRejection 将交易所错误响应映射为稳定分类
func classifyRejection(statusCode int, code, message string) *RejectionError {
	category := RejectionUnknown
	if statusCode >= 500 {
		category = RejectionExchangeOffline
	} else if c, ok := rejectionByCode[code]; ok {
		category = c
	}
	return &RejectionError{
		Category:   category,
		RawCode:    code,
		Message:    message,
		StatusCode: statusCode,
	}
}
