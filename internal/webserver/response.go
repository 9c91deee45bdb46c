package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OkResp wraps a successful payload
type OkResp struct {
	Data  interface{} `json:"data"`
	Toast *Toast      `json:"toast,omitempty"`
}

// PageMeta pagination info of a list response
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type PagedResp struct {
	Data interface{} `json:"data"`
	Meta PageMeta    `json:"meta"`
}

// FailResp error envelope
type FailResp struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Toast   *Toast      `json:"toast,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, OkResp{Data: data})
}

// OKWithToast returns data and queues toast as the success notification.
func OKWithToast(c echo.Context, status int, data interface{}, toast Toast) error {
	AddToast(c, toast)
	return c.JSON(status, OkResp{Data: data, Toast: &toast})
}

func Paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, PagedResp{
		Data: data,
		Meta: PageMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, FailResp{Error: code, Message: message, Details: details})
}

// FailWithToast returns an error envelope and queues a destructive toast with description.
func FailWithToast(c echo.Context, status int, code, message, description string) error {
	toast := ErrorToast(description)
	AddToast(c, toast)
	return c.JSON(status, FailResp{Error: code, Message: message, Toast: &toast})
}
