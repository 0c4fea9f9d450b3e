package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contabot/contabot/engine/webhook"
	"github.com/contabot/contabot/pkg/logger"
)

// trigger handles POST /api/trigger/:name. Multipart requests are
// forwarded field by field to the automation endpoint; anything else
// fires the plain JSON trigger payload.
func (h *handlers) trigger(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()
	var (
		result *webhook.Result
		err    error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		form, formErr := c.MultipartForm()
		if formErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_multipart"})
			return
		}
		fields := make(map[string]string)
		for key, values := range form.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		var files []webhook.File
		var openErr error
		for field, headers := range form.File {
			for _, header := range headers {
				file, fileErr := header.Open()
				if fileErr != nil {
					openErr = fileErr
					break
				}
				defer file.Close()
				files = append(files, webhook.File{Field: field, Name: header.Filename, Content: file})
			}
		}
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_multipart"})
			return
		}
		result, err = h.deps.Webhooks.Forward(ctx, name, fields, files)
	} else {
		result, err = h.deps.Webhooks.Fire(ctx, name)
	}
	if err != nil {
		h.respondTriggerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  result.Message,
		"response": result.Response,
	})
}

func (h *handlers) respondTriggerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, webhook.ErrUnknownTrigger):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_trigger"})
	case errors.Is(err, webhook.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_not_configured"})
	default:
		logger.FromContext(c.Request.Context()).Error("webhook delivery failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "webhook_delivery_failed"})
	}
}
