package command

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/assimon/bepusdt/controller/comm"
	"github.com/assimon/bepusdt/model/dao"
	"github.com/assimon/bepusdt/model/data"
	"github.com/assimon/bepusdt/model/response"
	"github.com/gookit/color"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func notifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Payment callback receiver",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the asynchronous payment callback endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, closeStore, err := a.notifyServer(ctx, logNotify(a))
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					a.logger.Warn("关闭 redis 连接失败", zap.Error(err))
				}
			}()
			return serve(ctx, e, a.settings.Notify.Listen, a.logger)
		},
	})
	return cmd
}

// notifyServer 组装回调服务，配置了 redis 时使用共享去重锁
// 返回的 closeStore 在服务退出后调用，释放 redis 连接
func (a *app) notifyServer(ctx context.Context, handle comm.NotifyHandler) (e *echo.Echo, closeStore func() error, err error) {
	client, err := a.client()
	if err != nil {
		return nil, nil, err
	}

	closeStore = func() error { return nil }
	var locker data.NotifyLocker
	if a.settings.Redis.Enabled() {
		rdb, err := dao.NewRedis(ctx, a.settings.Redis)
		if err != nil {
			return nil, nil, err
		}
		closeStore = rdb.Close
		locker = data.NewRedisNotifyLocker(rdb, a.settings.Notify.LockTTL)
	} else {
		locker = data.NewMemoryNotifyLocker(a.settings.Notify.LockTTL)
	}

	e = echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	controller := comm.NewOrderNotifyController(client, locker, handle, a.logger)
	controller.Register(e, a.settings.Notify.Path)
	if a.settings.Metrics.Enabled {
		e.GET(a.settings.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	return e, closeStore, nil
}

func serve(ctx context.Context, e *echo.Echo, listen string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(listen)
	}()
	color.Infof("callback server listening on %s\n", listen)
	logger.Info("回调服务已启动", zap.String("listen", listen))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "回调服务启动失败")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("回调服务正在关闭")
	return errors.Wrap(e.Shutdown(shutdownCtx), "回调服务关闭失败")
}

// logNotify 默认处理：记录回调日志
func logNotify(a *app) comm.NotifyHandler {
	return func(ctx context.Context, payload *response.CallbackPayload) error {
		a.logger.Info("收到支付回调",
			zap.String("trade_id", payload.TradeId),
			zap.String("order_id", payload.OrderId),
			zap.String("amount", payload.Amount.String()),
			zap.String("actual_amount", payload.ActualAmount.String()),
			zap.String("status", payload.Status.String()),
			zap.String("block_transaction_id", payload.BlockTransactionId),
		)
		return nil
	}
}
