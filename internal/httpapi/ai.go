package httpapi

import (
	"net/http"

	"temandifa-backend/internal/aiproxy"
	"temandifa-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Detect forwards an uploaded image to the object-detection service.
func (h Handlers) Detect(c *gin.Context) {
	h.forwardAI(c, aiproxy.Target{Name: "detection", URL: h.AIConfig.DetectURL, Field: "image"})
}

// Scan forwards an uploaded image to the OCR service.
func (h Handlers) Scan(c *gin.Context) {
	h.forwardAI(c, aiproxy.Target{Name: "ocr", URL: h.AIConfig.ScanURL, Field: "image"})
}

// Transcribe forwards an uploaded audio clip to the transcription service.
func (h Handlers) Transcribe(c *gin.Context) {
	h.forwardAI(c, aiproxy.Target{Name: "transcription", URL: h.AIConfig.TranscribeURL, Field: "audio"})
}

func (h Handlers) forwardAI(c *gin.Context, t aiproxy.Target) {
	fh, err := c.FormFile(t.Field)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": t.Field + " file is required"})
		return
	}

	res, err := h.AI.Forward(c.Request.Context(), t, fh, logger.RequestID(c))
	if err != nil {
		logger.FromGin(c).Error("upstream forward failed", "service", t.Name, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": t.Name + " service is unavailable"})
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(res.StatusCode, contentType, res.Body)
}
