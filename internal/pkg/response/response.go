package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/festa-dev/festa-backend/internal/pkg/errors"
)

// Response is the JSON envelope every handler writes. Code is 0 on
// success and a business error code otherwise.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

func write(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(httpStatus, Response{Code: code, Message: message, Data: data})
}

// Success writes a 200 envelope around data.
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, apperrors.Success, "", data)
}

// Created writes a 201 envelope around data.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, apperrors.Success, "", data)
}

// HandleError maps err to its business code and HTTP status. Unknown
// errors surface as internal server errors.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := apperrors.ExtractCode(err)
	message := apperrors.FormatError(code, apperrors.GetDetails(err))
	write(c, apperrors.GetHTTPStatus(code), code, message, nil)
}

// ErrorWithCode writes an error envelope from a bare business code.
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	write(c, apperrors.GetHTTPStatus(code), code, apperrors.FormatError(code, details...), nil)
}
