package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/logger"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// RespondWithError writes err as an error envelope. Errors that are not
// AppErrors become INTERNAL_ERROR; 5xx responses are logged with the request id.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.GetGlobalLogger().WithContext(c.Request.Context()).
			Error("request failed", logger.Fields(
				"code", string(appErr.Code),
				logger.FieldError, err.Error(),
				"path", c.FullPath(),
			))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK writes a 200 with data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondList writes a 200 with data and its item count.
func RespondList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: &Meta{Total: total}})
}

// RespondCreated writes a 201 with data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondNoContent writes a 204.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
