package service

import (
	"github.com/assimon/bepusdt/model/response"
	"github.com/assimon/bepusdt/util/constant"
	"github.com/assimon/bepusdt/util/sign"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const opCallback = "CALLBACK"

// 保留数字原文，避免 float64 转换影响签名
var callbackJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// VerifyCallback 校验回调签名，不发起网络请求
func (c *Client) VerifyCallback(payload map[string]interface{}) bool {
	if payload == nil {
		return false
	}
	return sign.Verify(sign.Params(payload), c.token)
}

// ParseCallback 解析并校验回调请求体
func (c *Client) ParseCallback(body []byte) (*response.CallbackPayload, error) {
	raw := make(map[string]interface{})
	if err := callbackJSON.Unmarshal(body, &raw); err != nil {
		return nil, &constant.Error{Kind: constant.KindClient, Op: opCallback, Message: "回调数据格式错误", Err: err}
	}
	if !c.VerifyCallback(raw) {
		c.logger.Warn("回调签名校验失败", zap.Any("trade_id", raw["trade_id"]))
		return nil, &constant.Error{Kind: constant.KindClient, Op: opCallback, Message: constant.ErrSignatureMismatch.Message}
	}

	payload := new(response.CallbackPayload)
	if err := callbackJSON.Unmarshal(body, payload); err != nil {
		return nil, &constant.Error{Kind: constant.KindClient, Op: opCallback, Message: "回调数据格式错误", Err: err}
	}
	return payload, nil
}
