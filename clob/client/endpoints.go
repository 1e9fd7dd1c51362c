package client

// API 端点常量
const (
	// Server Time
	EndpointTime = "/time"

	// Order endpoints
	EndpointPostOrder = "/order"
	EndpointGetNonce  = "/nonce"
)
