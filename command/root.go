package command

import (
	"context"

	"github.com/assimon/bepusdt/config"
	"github.com/assimon/bepusdt/model/service"
	"github.com/assimon/bepusdt/util/log"
	"github.com/assimon/bepusdt/util/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 命令共享的运行时依赖，首次使用时加载
type app struct {
	configPath string
	settings   *config.Settings
	logger     *zap.Logger
	registry   *prometheus.Registry
	collector  *metrics.Collector
}

// NewRootCmd 根命令
func NewRootCmd() *cobra.Command {
	a := new(app)
	cmd := &cobra.Command{
		Use:           "bepusdt",
		Short:         "BEpusdt payment gateway client",
		Version:       config.GetAppVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./config.yaml)")

	cmd.AddCommand(orderCmd(a))
	cmd.AddCommand(signCmd(a))
	cmd.AddCommand(notifyCmd(a))
	return cmd
}

// Execute 运行命令行
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (a *app) load() error {
	if a.settings != nil {
		return nil
	}
	settings, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := log.New(settings.Log)
	if err != nil {
		return errors.Wrap(err, "初始化日志失败")
	}
	a.settings = settings
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	a.collector = metrics.NewCollector(a.registry)
	return nil
}

func (a *app) client() (*service.Client, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	return service.NewClient(a.settings.Gateway,
		service.WithLogger(a.logger),
		service.WithMetrics(a.collector),
	)
}
