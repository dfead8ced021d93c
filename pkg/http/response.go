package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes an APIResponse envelope with the given status.
func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// BadRequestResponse reports request validation failures.
func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}

// BlobResponse writes a raw artifact. A non-empty filename is sent as an inline disposition so
// browsers keep the extension on download.
func BlobResponse(c echo.Context, contentType, filename string, body []byte) error {
	if filename != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	}
	return c.Blob(http.StatusOK, contentType, body)
}

// AppErrorResponse writes err wrapped in the envelope. Errors that are not an AppError become
// an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong").WithError(err)
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
