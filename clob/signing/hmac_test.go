package signing

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestBuildPolyHmacSignatureDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	body := `{"order":"x"}`

	sig1, err := BuildPolyHmacSignature(secret, 1700000000, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sig2, err := BuildPolyHmacSignature(secret, 1700000000, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig1 != sig2 {
		t.Fatalf("same input produced different signatures: %q vs %q", sig1, sig2)
	}

	// 时间戳变化必须改变签名
	sig3, err := BuildPolyHmacSignature(secret, 1700000001, "POST", "/order", &body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig3 == sig1 {
		t.Fatal("different timestamp produced identical signature")
	}
}

func TestBuildPolyHmacSignatureURLSafeSecret(t *testing.T) {
	// 同一密钥的 std base64 与 base64url 形式必须产生相同签名
	raw := []byte{0xfb, 0xef, 0xff, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	std := base64.StdEncoding.EncodeToString(raw)
	urlSafe := strings.ReplaceAll(strings.ReplaceAll(std, "+", "-"), "/", "_")

	sigStd, err := BuildPolyHmacSignature(std, 1700000000, "GET", "/nonce", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sigURL, err := BuildPolyHmacSignature(urlSafe, 1700000000, "GET", "/nonce", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sigStd != sigURL {
		t.Fatalf("base64url secret diverged: %q vs %q", sigStd, sigURL)
	}
}

func TestBuildPolyHmacSignatureOutputIsURLSafe(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("another-32-byte-secret-value!!!!"))
	for ts := int64(0); ts < 50; ts++ {
		sig, err := BuildPolyHmacSignature(secret, ts, "POST", "/order", nil)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if strings.ContainsAny(sig, "+/") {
			t.Fatalf("signature is not base64url: %q", sig)
		}
		if _, err := base64.URLEncoding.DecodeString(sig); err != nil {
			t.Fatalf("signature does not decode as base64url: %v", err)
		}
	}
}

func TestBuildPolyHmacSignatureBadSecret(t *testing.T) {
	if _, err := BuildPolyHmacSignature("not base64 !!!", 1700000000, "GET", "/nonce", nil); err == nil {
		t.Fatal("expected error for undecodable secret")
	}
}
