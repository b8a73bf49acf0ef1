package comm

import (
	"errors"
	"net/http"

	"github.com/assimon/bepusdt/model/response"
	"github.com/assimon/bepusdt/util/constant"
	"github.com/labstack/echo/v4"
	uuid "github.com/satori/go.uuid"
)

const (
	notifyOK   = "ok"
	notifyFail = "fail"
)

// BaseCommController 公共响应方法
type BaseCommController struct{}

func NewBaseCommController() BaseCommController {
	return BaseCommController{}
}

// SucJson 成功响应，信封格式与网关一致
func (c BaseCommController) SucJson(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, response.ApiResponse{
		StatusCode: constant.SuccessStatusCode,
		Message:    "success",
		Data:       data,
		RequestId:  requestId(ctx),
	})
}

// FailJson 失败响应，网关错误保留原始状态码
func (c BaseCommController) FailJson(ctx echo.Context, err error) error {
	code := http.StatusBadRequest
	httpStatus := http.StatusOK
	var gwErr *constant.Error
	if errors.As(err, &gwErr) {
		switch {
		case gwErr.Code != 0:
			code = gwErr.Code
		case gwErr.Kind == constant.KindClient:
			code = http.StatusBadRequest
		default:
			code = http.StatusBadGateway
			httpStatus = http.StatusBadGateway
		}
	}
	return ctx.JSON(httpStatus, response.ApiResponse{
		StatusCode: code,
		Message:    err.Error(),
		RequestId:  requestId(ctx),
	})
}

func requestId(ctx echo.Context) string {
	if id := ctx.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewV4().String()
}
