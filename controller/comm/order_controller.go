package comm

import (
	"context"
	"io"
	"net/http"

	"github.com/assimon/bepusdt/model/data"
	"github.com/assimon/bepusdt/model/response"
	"github.com/assimon/bepusdt/model/service"
	"github.com/assimon/bepusdt/util/log"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxNotifyBody 回调请求体上限
const maxNotifyBody = 1 << 20

// NotifyHandler 业务处理回调，返回错误时网关会重发
type NotifyHandler func(ctx context.Context, payload *response.CallbackPayload) error

// OrderNotifyController 支付回调与订单查询
type OrderNotifyController struct {
	BaseCommController
	client *service.Client
	locker data.NotifyLocker
	handle NotifyHandler
	logger *zap.Logger
}

func NewOrderNotifyController(client *service.Client, locker data.NotifyLocker, handle NotifyHandler, logger *zap.Logger) *OrderNotifyController {
	if locker == nil {
		locker = data.NewMemoryNotifyLocker(data.DefaultLockTTL)
	}
	if handle == nil {
		handle = func(context.Context, *response.CallbackPayload) error { return nil }
	}
	return &OrderNotifyController{
		BaseCommController: NewBaseCommController(),
		client:             client,
		locker:             locker,
		handle:             handle,
		logger:             log.OrNop(logger),
	}
}

// Notify 异步回调，成功后返回 ok，网关收到 ok 才停止重发
func (c *OrderNotifyController) Notify(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxNotifyBody))
	if err != nil {
		c.logger.Warn("读取回调请求体失败", zap.Error(err))
		return ctx.String(http.StatusBadRequest, notifyFail)
	}
	payload, err := c.client.ParseCallback(body)
	if err != nil {
		c.logger.Warn("回调校验失败", zap.Error(err), zap.String("remote_ip", ctx.RealIP()))
		return ctx.String(http.StatusBadRequest, notifyFail)
	}

	reqCtx := ctx.Request().Context()
	key := payload.Key()
	claimed, err := c.locker.Claim(reqCtx, key)
	if err != nil {
		c.logger.Error("回调去重失败", zap.String("key", key), zap.Error(err))
		return ctx.String(http.StatusInternalServerError, notifyFail)
	}
	if !claimed {
		c.logger.Info("重复回调，已忽略", zap.String("key", key))
		return ctx.String(http.StatusOK, notifyOK)
	}

	if err = c.handle(reqCtx, payload); err != nil {
		c.logger.Error("回调处理失败",
			zap.String("trade_id", payload.TradeId),
			zap.String("order_id", payload.OrderId),
			zap.Error(err),
		)
		if releaseErr := c.locker.Release(context.Background(), key); releaseErr != nil {
			c.logger.Error("释放回调锁失败", zap.String("key", key), zap.Error(releaseErr))
		}
		return ctx.String(http.StatusInternalServerError, notifyFail)
	}

	c.logger.Info("回调处理成功",
		zap.String("trade_id", payload.TradeId),
		zap.String("order_id", payload.OrderId),
		zap.String("status", payload.Status.String()),
		zap.String("actual_amount", payload.ActualAmount.String()),
	)
	return ctx.String(http.StatusOK, notifyOK)
}

// CheckStatus 代理查询网关订单状态
func (c *OrderNotifyController) CheckStatus(ctx echo.Context) error {
	order, err := c.client.QueryOrder(ctx.Request().Context(), ctx.Param("trade_id"))
	if err != nil {
		return c.FailJson(ctx, err)
	}
	return c.SucJson(ctx, order)
}

// Register 注册路由
func (c *OrderNotifyController) Register(e *echo.Echo, notifyPath string) {
	e.POST(notifyPath, c.Notify)
	e.GET("/order/check-status/:trade_id", c.CheckStatus)
}
