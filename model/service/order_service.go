package service

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/assimon/bepusdt/model/request"
	"github.com/assimon/bepusdt/model/response"
	"github.com/assimon/bepusdt/util/constant"
	"github.com/assimon/bepusdt/util/http_client"
	"github.com/assimon/bepusdt/util/sign"
	"go.uber.org/zap"
)

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, req *request.CreateOrderRequest) (*response.Order, error) {
	op := http.MethodPost + " " + constant.PathCreateTransaction
	if req == nil {
		return nil, constant.NewClientError(op, 0, "请求不能为空")
	}
	if err := req.Validate(); err != nil {
		return nil, &constant.Error{Kind: constant.KindClient, Op: op, Message: err.Error()}
	}

	order := new(response.Order)
	if err := c.post(ctx, constant.PathCreateTransaction, req.Params(), order); err != nil {
		return nil, err
	}
	c.logger.Info("订单创建成功",
		zap.String("order_id", order.OrderId),
		zap.String("trade_id", order.TradeId),
		zap.String("actual_amount", order.ActualAmount.String()),
	)
	return order, nil
}

// QueryOrder 查询订单状态
func (c *Client) QueryOrder(ctx context.Context, tradeId string) (*response.Order, error) {
	op := http.MethodGet + " " + constant.PathCheckStatus
	if tradeId == "" {
		return nil, constant.NewClientError(op, 0, "trade_id 不能为空")
	}

	resp, err := c.transport.Execute(ctx, &http_client.Request{
		Method:     http.MethodGet,
		URL:        c.baseURL + constant.PathCheckStatus + url.PathEscape(tradeId),
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}

	notFound := &constant.Error{Kind: constant.KindClient, Op: op, Message: constant.ErrOrderNotExists.Message, Attempts: resp.Attempts}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, notFound
	}
	var envelope response.Envelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.StatusCode != 0 && envelope.StatusCode != constant.SuccessStatusCode {
		e := constant.NewClientError(op, envelope.StatusCode, envelope.Message)
		e.Attempts = resp.Attempts
		return nil, e
	}
	var status response.CheckStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &constant.Error{Kind: constant.KindClient, Op: op, Message: "响应格式错误", Attempts: resp.Attempts, Err: err}
	}
	if status.TradeId == "" {
		return nil, notFound
	}
	return status.Order(), nil
}

// CancelOrder 取消订单，返回网关 data
func (c *Client) CancelOrder(ctx context.Context, tradeId string) (map[string]interface{}, error) {
	req := &request.CancelOrderRequest{TradeId: tradeId}
	if tradeId == "" {
		return nil, constant.NewClientError(http.MethodPost+" "+constant.PathCancelTransaction, 0, "trade_id 不能为空")
	}

	data := make(map[string]interface{})
	if err := c.post(ctx, constant.PathCancelTransaction, req.Params(), &data); err != nil {
		return nil, err
	}
	c.logger.Info("订单已取消", zap.String("trade_id", tradeId))
	return data, nil
}

// post 签名后提交，解析响应信封中的 data
func (c *Client) post(ctx context.Context, path string, params sign.Params, out interface{}) error {
	op := http.MethodPost + " " + path
	body, err := json.Marshal(params.Signed(c.token))
	if err != nil {
		return &constant.Error{Kind: constant.KindOther, Op: op, Message: "序列化请求参数失败", Err: err}
	}

	resp, err := c.transport.Execute(ctx, &http_client.Request{
		Method:     http.MethodPost,
		URL:        c.baseURL + path,
		Body:       body,
		Idempotent: c.retryMutations,
	})
	if err != nil {
		return err
	}

	var envelope response.Envelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return &constant.Error{Kind: constant.KindClient, Op: op, Message: "响应格式错误", Attempts: resp.Attempts, Err: err}
	}
	if envelope.StatusCode != constant.SuccessStatusCode {
		e := constant.NewClientError(op, envelope.StatusCode, envelope.Message)
		e.Attempts = resp.Attempts
		c.logger.Warn("网关返回业务错误",
			zap.String("op", op),
			zap.Int("status_code", envelope.StatusCode),
			zap.String("message", envelope.Message),
			zap.String("request_id", envelope.RequestId),
		)
		return e
	}
	if !envelope.HasData() {
		return &constant.Error{Kind: constant.KindClient, Op: op, Message: constant.ErrEmptyResponseData.Message, Attempts: resp.Attempts}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &constant.Error{Kind: constant.KindClient, Op: op, Message: "响应格式错误", Attempts: resp.Attempts, Err: err}
	}
	return nil
}
