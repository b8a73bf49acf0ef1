package response

import (
	"encoding/json"
	"strconv"

	"github.com/assimon/bepusdt/util/constant"
	"github.com/golang-module/carbon/v2"
	"github.com/shopspring/decimal"
)

// Envelope 网关统一响应信封（创建、取消）
type Envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	RequestId  string          `json:"request_id"`
}

// ApiResponse 本地回调服务的响应，字段与 Envelope 一致
type ApiResponse struct {
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	RequestId  string      `json:"request_id"`
}

// HasData data 字段存在且不为 null
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// Order 订单信息
type Order struct {
	TradeId            string               `json:"trade_id"`        //  网关订单号
	OrderId            string               `json:"order_id"`        //  商户订单号
	Amount             decimal.Decimal      `json:"amount"`          //  订单金额
	ActualAmount       decimal.Decimal      `json:"actual_amount"`   //  实际需要支付的金额
	Token              string               `json:"token"`           //  收款钱包地址
	ExpirationTime     int64                `json:"expiration_time"` //  过期时间
	PaymentUrl         string               `json:"payment_url"`     //  收银台地址
	Status             constant.OrderStatus `json:"status"`          //  查询或回调时才有
	BlockTransactionId string               `json:"block_transaction_id"`
	ReturnUrl          string               `json:"return_url"`
}

// IsPaid 是否支付成功
func (o *Order) IsPaid() bool {
	return o.Status == constant.StatusPaySuccess
}

// ExpiresAt 过期时间，网关返回的时间戳或剩余秒数
func (o *Order) ExpiresAt() carbon.Carbon {
	if o.ExpirationTime <= 0 {
		return carbon.Carbon{}
	}
	// 小于一年的值按剩余秒数处理
	if o.ExpirationTime < 365*24*3600 {
		return carbon.Now().AddSeconds(int(o.ExpirationTime))
	}
	return carbon.CreateFromTimestamp(o.ExpirationTime)
}

// CheckStatusResponse 订单状态查询
type CheckStatusResponse struct {
	TradeId   string               `json:"trade_id"`
	TradeHash string               `json:"trade_hash"`
	Status    constant.OrderStatus `json:"status"`
	ReturnUrl string               `json:"return_url"`
}

// Order 转换为订单信息
func (r *CheckStatusResponse) Order() *Order {
	return &Order{
		TradeId:            r.TradeId,
		Status:             r.Status,
		BlockTransactionId: r.TradeHash,
		ReturnUrl:          r.ReturnUrl,
	}
}

// CallbackPayload 支付回调
type CallbackPayload struct {
	TradeId            string               `json:"trade_id"`
	OrderId            string               `json:"order_id"`
	Amount             decimal.Decimal      `json:"amount"`
	ActualAmount       decimal.Decimal      `json:"actual_amount"`
	Token              string               `json:"token"`
	BlockTransactionId string               `json:"block_transaction_id"`
	Status             constant.OrderStatus `json:"status"`
	Signature          string               `json:"signature"`
}

// IsPaid 是否支付成功
func (p *CallbackPayload) IsPaid() bool {
	return p.Status == constant.StatusPaySuccess
}

// Key 回调去重键，状态取原始数值，未知状态之间互不冲突
func (p *CallbackPayload) Key() string {
	return p.TradeId + ":" + strconv.Itoa(int(p.Status))
}
