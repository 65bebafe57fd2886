package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anime-shed/stripreader/internal/analyzer"
	"github.com/anime-shed/stripreader/internal/config"
	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/logger"
	"github.com/anime-shed/stripreader/internal/observer"
	"github.com/anime-shed/stripreader/internal/service"
	"github.com/anime-shed/stripreader/internal/storage"
	"github.com/anime-shed/stripreader/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

type handler struct {
	svc     service.StripAnalysisService
	metrics *observer.MetricsObserver
	cfg     *config.Config
}

// NewHandler builds the gin engine. metrics may be nil.
func NewHandler(svc service.StripAnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, cfg: cfg}
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", h.getMetrics)

	api := r.Group("/api")
	api.GET("/profiles", h.listProfiles)
	api.POST("/analyze", h.analyzeUpload)
	api.POST("/analyze/url", h.analyzeURL)
	api.POST("/tests", h.createTest)
	api.GET("/tests", h.listTests)
	api.GET("/tests/:id", h.getTest)
	api.GET("/tests/:id/image", h.getTestImage)

	return r
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

// analyzeUpload reads the raw request body as the image
func (h *handler) analyzeUpload(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := h.requestContext(c)
	defer cancel()

	req := service.AnalysisRequest{
		Source:  "upload",
		Profile: c.Query("profile"),
		Mode:    c.Query("mode"),
	}
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
		"profile":    req.Profile,
	}).Info("Processing strip analysis request")

	rec, err := h.svc.AnalyzeStream(ctx, c.Request.Body, req)
	h.respondRecord(c, rec, err, startTime)
}

func (h *handler) analyzeURL(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var body models.URLAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"url":     body.URL,
		"profile": body.Profile,
		"ip":      c.ClientIP(),
	}).Debug("Fetching image")

	rec, err := h.svc.AnalyzeURL(ctx, body.URL, service.AnalysisRequest{
		Profile: body.Profile,
		Mode:    body.Mode,
	})
	h.respondRecord(c, rec, err, startTime)
}

func (h *handler) respondRecord(c *gin.Context, rec models.ResultRecord, err error, startTime time.Time) {
	fields := logrus.Fields{
		"path":               c.Request.URL.Path,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"status":             rec.Status,
	}
	if err != nil {
		code := determineStatusCode(err)
		logger.WithError(err).WithFields(fields).WithField("status_code", code).Warn("Strip analysis rejected")
		c.AbortWithStatusJSON(code, rec)
		return
	}
	logger.WithFields(fields).Info("Strip analysis completed successfully")
	c.JSON(http.StatusOK, rec)
}

// createTest handles the multipart submission form
func (h *handler) createTest(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	date := c.PostForm("date")
	file, err := c.FormFile("image")
	if err != nil || strings.TrimSpace(date) == "" {
		respondError(c, http.StatusBadRequest, service.MsgSubmissionIncomplete, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read uploaded image", err)
		return
	}
	defer f.Close()
	data, err := storage.ReadAll(f, h.cfg.MaxRequestBodySize)
	if err != nil {
		h.respondAppError(c, err)
		return
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		userID = c.PostForm("userId")
	}
	rec, err := h.svc.SubmitTest(ctx, data, models.TestSubmission{
		UserID:      userID,
		Date:        date,
		Profile:     c.PostForm("profile"),
		Mode:        c.PostForm("mode"),
		ContentType: file.Header.Get("Content-Type"),
		Filename:    file.Filename,
	})
	if err != nil {
		h.respondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handler) listTests(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	recs, err := h.svc.ListTests(ctx, c.Query("user_id"))
	if err != nil {
		h.respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *handler) getTest(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rec, err := h.svc.GetTest(ctx, c.Param("id"), c.Query("user_id"))
	if err != nil {
		h.respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) getTestImage(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rc, err := h.svc.OpenTestImage(ctx, c.Param("id"), c.Query("user_id"))
	if err != nil {
		h.respondAppError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "image/jpeg", rc, nil)
}

func (h *handler) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":  h.cfg.DefaultProfile,
		"profiles": h.svc.Profiles().Names(),
	})
}

func (h *handler) getMetrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, observer.Metrics{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// respondAppError answers pipeline failures with the error record and every
// other failure with an ErrorResponse
func (h *handler) respondAppError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		respondError(c, determineStatusCode(err), "request processing failed", err)
		return
	}
	switch appErr.Type {
	case apperrors.ErrorTypeInput, apperrors.ErrorTypeQuality, apperrors.ErrorTypeDetection:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Image rejected")
		c.AbortWithStatusJSON(appErr.StatusCode, analyzer.ErrorRecord(err))
	default:
		respondError(c, appErr.StatusCode, appErr.Message, appErr.Cause)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error("Request failed")

	resp := models.ErrorResponse{Error: message}
	if err != nil && code < http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(code, resp)
}
