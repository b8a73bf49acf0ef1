package sign

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldSignature 签名字段名，不参与签名计算
const FieldSignature = "signature"

// Params 待签名参数
type Params map[string]interface{}

// Canonical 标量转签名字符串，返回 false 表示该值不参与签名
// 数值统一按 decimal 最短形式输出，10 与 10.0 均为 "10"
// NaN、Inf 不是合法的 JSON 数值，按空值处理
func Canonical(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.FormatInt(int64(val), 10), true
	case int8:
		return strconv.FormatInt(int64(val), 10), true
	case int16:
		return strconv.FormatInt(int64(val), 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint8:
		return strconv.FormatUint(uint64(val), 10), true
	case uint16:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		if !finite(float64(val)) {
			return "", false
		}
		return decimal.NewFromFloat32(val).String(), true
	case float64:
		if !finite(val) {
			return "", false
		}
		return decimal.NewFromFloat(val).String(), true
	case decimal.Decimal:
		return val.String(), true
	case *decimal.Decimal:
		if val == nil {
			return "", false
		}
		return val.String(), true
	case decimal.NullDecimal:
		if !val.Valid {
			return "", false
		}
		return val.Decimal.String(), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return val.String(), val != ""
		}
		return d.String(), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}

// Encode 按 key 字典序拼接 k=v，跳过空值与 signature 字段
func (p Params) Encode() string {
	keys := make([]string, 0, len(p))
	values := make(map[string]string, len(p))
	for k, v := range p {
		if k == FieldSignature {
			continue
		}
		s, ok := Canonical(v)
		if !ok {
			continue
		}
		keys = append(keys, k)
		values[k] = s
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values[k])
	}
	return b.String()
}

// Signed 生成请求体：去掉空值，数值以 json.Number 输出，附带 signature
// 请求体中的数值与签名串中的写法一致
func (p Params) Signed(token string) map[string]interface{} {
	out := make(map[string]interface{}, len(p)+1)
	for k, v := range p {
		if k == FieldSignature {
			continue
		}
		s, ok := Canonical(v)
		if !ok {
			continue
		}
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number, decimal.Decimal, *decimal.Decimal, decimal.NullDecimal:
			out[k] = json.Number(s)
		case bool:
			out[k] = v
		default:
			out[k] = s
		}
	}
	out[FieldSignature] = Sign(p, token)
	return out
}

// Sign 生成签名：md5(k1=v1&k2=v2...token)，32 位小写
func Sign(params Params, token string) string {
	sum := md5.Sum([]byte(params.Encode() + token))
	return hex.EncodeToString(sum[:])
}

// Verify 校验参数中携带的 signature 字段
func Verify(params Params, token string) bool {
	signature, ok := params[FieldSignature].(string)
	if !ok {
		return false
	}
	return VerifySignature(params, token, signature)
}

// VerifySignature 校验签名，常量时间比较
func VerifySignature(params Params, token, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(params, token)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
