package signing

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/polyterm/polyterm/clob/types"
)

// OrderData 订单数据（用于签名）
type OrderData struct {
	Salt          int64
	Maker         string
	Signer        string
	Taker         string
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          types.Side
	SignatureType types.SignatureType
}

// orderTypedData 构建订单的 EIP712 TypedData
// 域名固定为 "Polymarket CTF Exchange"，verifyingContract 按 negRisk 选择
func orderTypedData(chainID types.Chain, exchangeAddress string, orderData *OrderData) apitypes.TypedData {
	domain := apitypes.TypedDataDomain{
		Name:              "Polymarket CTF Exchange",
		Version:           "1",
		ChainId:           math.NewHexOrDecimal256(int64(chainID)),
		VerifyingContract: exchangeAddress,
	}

	typeDefs := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"Order": {
			{Name: "salt", Type: "uint256"},
			{Name: "maker", Type: "address"},
			{Name: "signer", Type: "address"},
			{Name: "taker", Type: "address"},
			{Name: "tokenId", Type: "uint256"},
			{Name: "makerAmount", Type: "uint256"},
			{Name: "takerAmount", Type: "uint256"},
			{Name: "expiration", Type: "uint256"},
			{Name: "nonce", Type: "uint256"},
			{Name: "feeRateBps", Type: "uint256"},
			{Name: "side", Type: "uint8"},
			{Name: "signatureType", Type: "uint8"},
		},
	}

	// BUY = 0, SELL = 1（与 @polymarket/order-utils 一致）
	var sideUint8 uint8 = 1
	if orderData.Side == types.SideBuy {
		sideUint8 = 0
	}

	// 地址使用字符串格式（.Hex()），side 和 signatureType 使用 big.Int
	message := map[string]interface{}{
		"salt":          big.NewInt(orderData.Salt),
		"maker":         common.HexToAddress(orderData.Maker).Hex(),
		"signer":        common.HexToAddress(orderData.Signer).Hex(),
		"taker":         common.HexToAddress(orderData.Taker).Hex(),
		"tokenId":       orderData.TokenID,
		"makerAmount":   orderData.MakerAmount,
		"takerAmount":   orderData.TakerAmount,
		"expiration":    orderData.Expiration,
		"nonce":         orderData.Nonce,
		"feeRateBps":    orderData.FeeRateBps,
		"side":          big.NewInt(int64(sideUint8)),
		"signatureType": big.NewInt(int64(orderData.SignatureType)),
	}

	return apitypes.TypedData{
		Types:       typeDefs,
		PrimaryType: "Order",
		Domain:      domain,
		Message:     message,
	}
}

// OrderDigest 计算订单的 EIP712 哈希（\x19\x01 ‖ domainSeparator ‖ structHash）
// 测试和验签使用同一入口，保证与签名时的哈希一致
func OrderDigest(chainID types.Chain, exchangeAddress string, orderData *OrderData) ([]byte, error) {
	typedData := orderTypedData(chainID, exchangeAddress, orderData)
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("计算 EIP712 哈希失败: %w", err)
	}
	return hash, nil
}

// BuildOrderSignature 构建订单的 EIP712 签名
// crypto.Sign 返回 65 字节 r(32)+s(32)+v(1)，直接十六进制编码（0x 前缀）
func BuildOrderSignature(
	privateKey *ecdsa.PrivateKey,
	chainID types.Chain,
	exchangeAddress string,
	orderData *OrderData,
) (string, error) {
	hash, err := OrderDigest(chainID, exchangeAddress, orderData)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}

	return "0x" + common.Bytes2Hex(signature), nil
}

// RecoverOrderSigner 从订单签名恢复签名者地址
func RecoverOrderSigner(
	chainID types.Chain,
	exchangeAddress string,
	orderData *OrderData,
	signatureHex string,
) (common.Address, error) {
	hash, err := OrderDigest(chainID, exchangeAddress, orderData)
	if err != nil {
		return common.Address{}, err
	}

	sig := common.FromHex(signatureHex)
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("签名长度必须是 65 字节, got %d", len(sig))
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("恢复公钥失败: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// GetAddressFromPrivateKey 从私钥获取地址
func GetAddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// PrivateKeyFromHex 从十六进制字符串解析私钥
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(hexKey)
}
