package command

import (
	"fmt"
	"strings"

	"github.com/assimon/bepusdt/util/sign"
	"github.com/gookit/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func signCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print the canonical string and signature of parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			if token == "" {
				if err := a.load(); err != nil {
					return err
				}
				token = a.settings.Gateway.Token
			}
			if token == "" {
				return errors.New("api token 不能为空，使用 --token 或配置 gateway.token")
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s %s\n", color.Cyan.Sprint("canonical"), params.Encode())
			_, _ = fmt.Fprintf(w, "%s %s\n", color.Cyan.Sprint("signature"), sign.Sign(params, token))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "api token (default gateway.token)")
	return cmd
}

// parseParams 解析 key=value，值按字符串参与签名
func parseParams(args []string) (sign.Params, error) {
	params := make(sign.Params, len(args))
	for _, arg := range args {
		i := strings.IndexByte(arg, '=')
		if i <= 0 {
			return nil, errors.Errorf("参数格式错误: %q", arg)
		}
		params[arg[:i]] = arg[i+1:]
	}
	return params, nil
}
