package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

// 业务状态码
const (
	CodeSuccess      = 0
	CodeInvalidParam = 40001
	CodeUnauthorized = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeTooMany      = 42901
	CodeInternal     = 50001
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: CodeInvalidParam, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: msg})
}

func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Code: CodeTooMany, Message: "too many requests"})
}

func InternalError(c *gin.Context, err error) {
	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, Response{Code: CodeInternal, Message: "internal server error"})
}

// Error 按错误分类输出对应的 HTTP 状态码与业务码
func Error(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, Response{Code: CodeInvalidParam, Message: err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, Response{Code: CodeNotFound, Message: err.Error()})
	case apperr.KindPermission:
		c.JSON(http.StatusForbidden, Response{Code: CodeForbidden, Message: err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, Response{Code: CodeConflict, Message: err.Error()})
	default:
		InternalError(c, err)
	}
}
