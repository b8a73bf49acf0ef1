package request

import (
	"fmt"

	"github.com/assimon/bepusdt/util/constant"
	"github.com/assimon/bepusdt/util/sign"
	"github.com/gookit/validate"
	"github.com/shopspring/decimal"
)

// minimumAmount 网关最低支付金额
const minimumAmount = "0.01"

// MinimumAmount 网关最低支付金额
func MinimumAmount() decimal.Decimal {
	return decimal.RequireFromString(minimumAmount)
}

// CreateOrderRequest 创建交易请求
type CreateOrderRequest struct {
	OrderId     string             `json:"order_id" validate:"required|maxLen:128"`
	Amount      decimal.Decimal    `json:"amount"`
	NotifyUrl   string             `json:"notify_url" validate:"required|isURL"`
	RedirectUrl string             `json:"redirect_url" validate:"isURL"`
	TradeType   constant.TradeType `json:"trade_type"`
	// 以下为可选字段，为空时不参与签名
	Fiat    string              `json:"fiat"`    // 法币，例如 CNY、USD
	Timeout int                 `json:"timeout"` // 订单有效期，秒
	Rate    decimal.NullDecimal `json:"rate"`    // 强制汇率
	Address string              `json:"address"` // 指定收款地址
	Name    string              `json:"name"`    // 商品名称
}

func (r CreateOrderRequest) Translates() map[string]string {
	return validate.MS{
		"OrderId":     "订单号",
		"NotifyUrl":   "异步回调网址",
		"RedirectUrl": "同步跳转网址",
	}
}

// Validate 本地校验，失败时不发起网络请求
func (r *CreateOrderRequest) Validate() error {
	v := validate.Struct(r)
	if !v.Validate() {
		return fmt.Errorf("%s", v.Errors.One())
	}
	if r.Amount.LessThan(MinimumAmount()) {
		return fmt.Errorf("支付金额不足，最低 %s", minimumAmount)
	}
	if r.TradeType != "" && !r.TradeType.Known() {
		return fmt.Errorf("不支持的支付类型: %s", r.TradeType)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("订单有效期不能为负数: %d", r.Timeout)
	}
	return nil
}

// Params 转为签名参数，零值字段省略
func (r *CreateOrderRequest) Params() sign.Params {
	tradeType := r.TradeType
	if tradeType == "" {
		tradeType = constant.DefaultTradeType
	}
	params := sign.Params{
		"order_id":     r.OrderId,
		"amount":       r.Amount,
		"notify_url":   r.NotifyUrl,
		"redirect_url": r.RedirectUrl,
		"trade_type":   string(tradeType),
		"fiat":         r.Fiat,
		"address":      r.Address,
		"name":         r.Name,
		"rate":         r.Rate,
	}
	if r.Timeout > 0 {
		params["timeout"] = r.Timeout
	}
	return params
}

// CancelOrderRequest 取消交易请求
type CancelOrderRequest struct {
	TradeId string `json:"trade_id" validate:"required"`
}

func (r *CancelOrderRequest) Params() sign.Params {
	return sign.Params{"trade_id": r.TradeId}
}
