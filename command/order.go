package command

import (
	"fmt"
	"io"

	"github.com/assimon/bepusdt/model/request"
	"github.com/assimon/bepusdt/model/response"
	"github.com/assimon/bepusdt/util/constant"
	"github.com/gookit/color"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func orderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Create, query and cancel gateway orders",
	}
	cmd.AddCommand(orderCreateCmd(a))
	cmd.AddCommand(orderQueryCmd(a))
	cmd.AddCommand(orderCancelCmd(a))
	return cmd
}

func orderCreateCmd(a *app) *cobra.Command {
	var (
		req       request.CreateOrderRequest
		amount    string
		rate      string
		tradeType string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Amount, err = decimal.NewFromString(amount); err != nil {
				return errors.Wrapf(err, "金额格式错误: %s", amount)
			}
			if rate != "" {
				r, err := decimal.NewFromString(rate)
				if err != nil {
					return errors.Wrapf(err, "汇率格式错误: %s", rate)
				}
				req.Rate = decimal.NewNullDecimal(r)
			}
			if req.OrderId == "" {
				req.OrderId = uuid.NewV4().String()
			}
			req.TradeType = constant.TradeType(tradeType)

			client, err := a.client()
			if err != nil {
				return err
			}
			order, err := client.CreateOrder(cmd.Context(), &req)
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), order)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.OrderId, "order-id", "", "merchant order id (default random uuid)")
	f.StringVar(&amount, "amount", "", "order amount")
	f.StringVar(&req.NotifyUrl, "notify-url", "", "asynchronous callback url")
	f.StringVar(&req.RedirectUrl, "redirect-url", "", "redirect url after payment")
	f.StringVar(&tradeType, "trade-type", string(constant.DefaultTradeType), "payment network and token")
	f.StringVar(&req.Fiat, "fiat", "", "fiat currency, e.g. CNY")
	f.IntVar(&req.Timeout, "timeout", 0, "order lifetime in seconds")
	f.StringVar(&rate, "rate", "", "fixed exchange rate")
	f.StringVar(&req.Address, "address", "", "receiving wallet address")
	f.StringVar(&req.Name, "name", "", "product name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("notify-url")
	return cmd
}

func orderQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <trade_id>",
		Short: "Query order status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			order, err := client.QueryOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), order)
			return nil
		},
	}
}

func orderCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <trade_id>",
		Short: "Cancel an unpaid order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			data, err := client.CancelOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), color.Green.Sprintf("订单已取消: %v", data["trade_id"]))
			return nil
		},
	}
}

func printOrder(w io.Writer, order *response.Order) {
	line := func(name string, value interface{}) {
		_, _ = fmt.Fprintf(w, "%s %v\n", color.Cyan.Sprintf("%-14s", name), value)
	}
	line("trade_id", order.TradeId)
	if order.OrderId != "" {
		line("order_id", order.OrderId)
	}
	if !order.Amount.IsZero() {
		line("amount", order.Amount)
		line("actual_amount", order.ActualAmount)
	}
	if order.Token != "" {
		line("token", order.Token)
	}
	if order.PaymentUrl != "" {
		line("payment_url", order.PaymentUrl)
	}
	if expiresAt := order.ExpiresAt(); !expiresAt.IsZero() {
		line("expires_at", expiresAt.ToDateTimeString())
	}
	if order.Status != 0 {
		status := order.Status.String()
		if order.IsPaid() {
			status = color.Green.Sprint(status)
		}
		line("status", status)
	}
	if order.BlockTransactionId != "" {
		line("tx_hash", order.BlockTransactionId)
	}
}
