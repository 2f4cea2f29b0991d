package payment

import (
	"strings"
	"testing"
)

const testSecret = "test-secret"

func TestSigningStringFormat(t *testing.T) {
	params := map[string]any{
		"order_id":    "SO1001",
		"amount":      int64(1999),
		"currency":    "USD",
		"merchant_id": "M-1",
	}
	got := SigningString(params, testSecret)
	// 密钥在最前，其余按键名升序取值
	want := "test-secret|1999|USD|M-1|SO1001"
	if got != want {
		t.Fatalf("SigningString = %q, want %q", got, want)
	}
}

func TestSignVerifyRoundtrip(t *testing.T) {
	cases := []map[string]any{
		{"order_id": "SO1", "amount": int64(100), "currency": "USD"},
		{"a": "1"},
		{"order_id": "SO2", "order_status": "approved", "payment_id": "P1",
			"amount": int64(5000), "currency": "GEL", "response_status": "success"},
	}
	for _, params := range cases {
		sig := Sign(params, testSecret)
		payload := make(map[string]any, len(params)+1)
		for k, v := range params {
			payload[k] = v
		}
		payload[FieldSignature] = sig
		if !Verify(payload, testSecret) {
			t.Errorf("Verify failed for %v", params)
		}
		if Verify(payload, "wrong-secret") {
			t.Errorf("Verify passed with wrong secret for %v", params)
		}
	}
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	params := map[string]any{"order_id": "SO1", "amount": int64(100)}
	sig := Sign(params, testSecret)

	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'f' {
			mutated[i] = '0'
		} else {
			mutated[i] = 'f'
		}
		payload := map[string]any{
			"order_id":     "SO1",
			"amount":       int64(100),
			FieldSignature: string(mutated),
		}
		if Verify(payload, testSecret) {
			t.Fatalf("Verify passed with mutated signature at position %d", i)
		}
	}
}

func TestSignIgnoresEmptyFields(t *testing.T) {
	full := map[string]any{"a": int64(1), "b": "", "c": nil}
	min := map[string]any{"a": int64(1)}
	if Sign(full, testSecret) != Sign(min, testSecret) {
		t.Fatal("empty/nil fields must not participate in the signature")
	}
}

func TestSignFieldOrderIndependence(t *testing.T) {
	// map 遍历顺序本身随机，多算几遍结果必须稳定
	params := map[string]any{
		"z": "last", "a": "first", "m": "middle", "amount": int64(42),
	}
	want := Sign(params, testSecret)
	for i := 0; i < 50; i++ {
		rebuilt := map[string]any{
			"amount": int64(42), "m": "middle", "z": "last", "a": "first",
		}
		if got := Sign(rebuilt, testSecret); got != want {
			t.Fatalf("Sign unstable across identical inputs: %q vs %q", got, want)
		}
	}
}

func TestNumericSerializationConsistency(t *testing.T) {
	// 两端最常见的事故：一边签 100，另一边签 100.0
	asInt := map[string]any{"amount": int64(100), "order_id": "SO1"}
	asFloat := map[string]any{"amount": float64(100.0), "order_id": "SO1"}
	asString := map[string]any{"amount": "100", "order_id": "SO1"}

	sigInt := Sign(asInt, testSecret)
	if Sign(asFloat, testSecret) != sigInt {
		t.Fatal("float64(100.0) must serialize identically to int64(100)")
	}
	if Sign(asString, testSecret) != sigInt {
		t.Fatal(`"100" must serialize identically to int64(100)`)
	}

	// 非整数金额保留小数位
	if s := SigningString(map[string]any{"amount": 10.5}, testSecret); !strings.HasSuffix(s, "|10.5") {
		t.Fatalf("fractional amount rendered wrong: %q", s)
	}
}

func TestSignatureIsLowercaseHex(t *testing.T) {
	sig := Sign(map[string]any{"a": "1"}, testSecret)
	if len(sig) != 40 {
		t.Fatalf("SHA-1 hex digest must be 40 chars, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatalf("signature must be lowercase hex: %q", sig)
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	cases := []map[string]any{
		nil,
		{},
		{"order_id": "SO1"},                     // 无签名字段
		{"order_id": "SO1", FieldSignature: ""}, // 空签名
		{"order_id": "SO1", FieldSignature: 12345}, // 签名不是字符串
	}
	for i, payload := range cases {
		if Verify(payload, testSecret) {
			t.Errorf("case %d: Verify must return false on malformed input", i)
		}
	}
}

func TestSignExcludesSignStringField(t *testing.T) {
	base := map[string]any{"order_id": "SO1", "amount": int64(1)}
	withMeta := map[string]any{
		"order_id": "SO1", "amount": int64(1),
		"sign_string": "secret|1|SO1",
	}
	if Sign(base, testSecret) != Sign(withMeta, testSecret) {
		t.Fatal("pre-serialized signing string field must be excluded")
	}
}
