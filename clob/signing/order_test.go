package signing

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/polyterm/polyterm/clob/types"
)

const testExchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

func testOrderData(side types.Side) *OrderData {
	return &OrderData{
		Salt:          12345,
		Maker:         "0x1111111111111111111111111111111111111111",
		Signer:        "0x1111111111111111111111111111111111111111",
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       big.NewInt(123),
		MakerAmount:   big.NewInt(45000000),
		TakerAmount:   big.NewInt(100000000),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          side,
		SignatureType: types.SignatureTypeEOA,
	}
}

func TestOrderDigestDeterministic(t *testing.T) {
	d1, err := OrderDigest(types.ChainPolygon, testExchange, testOrderData(types.SideBuy))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	d2, err := OrderDigest(types.ChainPolygon, testExchange, testOrderData(types.SideBuy))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Fatal("same order produced different digests")
	}
}

func TestOrderDigestDependsOnDomainAndFields(t *testing.T) {
	base, err := OrderDigest(types.ChainPolygon, testExchange, testOrderData(types.SideBuy))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// 域分离：不同 verifying contract 必须产生不同摘要
	otherExchange, err := OrderDigest(types.ChainPolygon, "0xC5d563A36AE78145C45a50134d48A1215220f80a", testOrderData(types.SideBuy))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if bytes.Equal(base, otherExchange) {
		t.Fatal("different exchange address produced identical digest")
	}

	otherChain, err := OrderDigest(types.ChainAmoy, testExchange, testOrderData(types.SideBuy))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if bytes.Equal(base, otherChain) {
		t.Fatal("different chain id produced identical digest")
	}

	sell, err := OrderDigest(types.ChainPolygon, testExchange, testOrderData(types.SideSell))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if bytes.Equal(base, sell) {
		t.Fatal("different side produced identical digest")
	}
}

func TestBuildAndRecoverOrderSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	order := testOrderData(types.SideBuy)
	order.Maker = addr.Hex()
	order.Signer = addr.Hex()

	sig, err := BuildOrderSignature(key, types.ChainPolygon, testExchange, order)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(sig) != 2+65*2 {
		t.Fatalf("signature length = %d, want 132 hex chars with 0x prefix", len(sig))
	}

	recovered, err := RecoverOrderSigner(types.ChainPolygon, testExchange, order, sig)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if recovered != addr {
		t.Fatalf("recovered %s, want %s", recovered.Hex(), addr.Hex())
	}
}

func TestRecoverOrderSignerRejectsBadLength(t *testing.T) {
	if _, err := RecoverOrderSigner(types.ChainPolygon, testExchange, testOrderData(types.SideBuy), "0x1234"); err == nil {
		t.Fatal("expected error for short signature")
	}
}
