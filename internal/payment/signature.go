package payment

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// 签名自身以及预序列化的签名串不参与签名计算
const (
	FieldSignature  = "signature"
	fieldSignString = "sign_string"
)

// SigningString 构造规范签名串：
// 去掉空值字段，按键名字节序升序取值，密钥放在第一个元素，用 | 连接。
// 数值一律按十进制渲染（100 和 100.0 必须得到同一个串，
// 这是两端签名不一致最常见的原因）。
func SigningString(params map[string]any, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == FieldSignature || k == fieldSignString {
			continue
		}
		if _, ok := renderValue(params[k]); !ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, secret)
	for _, k := range keys {
		v, _ := renderValue(params[k])
		parts = append(parts, v)
	}
	return strings.Join(parts, "|")
}

// Sign 计算签名：签名串的 SHA-1 摘要，小写十六进制
func Sign(params map[string]any, secret string) string {
	sum := sha1.Sum([]byte(SigningString(params, secret)))
	return hex.EncodeToString(sum[:])
}

// Verify 重算签名并与 payload 自带的 signature 比对。
// 任何形态的非法输入都返回 false，绝不 panic；比对使用常数时间。
func Verify(payload map[string]any, secret string) bool {
	if len(payload) == 0 {
		return false
	}
	raw, ok := payload[FieldSignature]
	if !ok {
		return false
	}
	got, ok := raw.(string)
	if !ok || got == "" {
		return false
	}
	want := Sign(payload, secret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// renderValue 把字段值序列化为签名用的字符串形式。
// 第二个返回值为 false 表示该字段视为空值，从签名串中剔除。
func renderValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		s := fmt.Sprint(t)
		if s == "" {
			return "", false
		}
		return s, true
	}
}
