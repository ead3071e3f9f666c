// Package server hosts the job entry point over HTTP for local development
// and the platform's synchronous dispatch contract.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/device"
	"github.com/voxworks/whisperd/internal/worker"
)

// Runner processes one job. Satisfied by *worker.Handler.
type Runner interface {
	Handle(ctx context.Context, input worker.JobInput) (*worker.Output, error)
}

type Options struct {
	Runner  Runner
	Profile device.Profile
	// LoadedModels reports the names currently cached, for health checks.
	LoadedModels func() []string
	Version      string
	Logger       *zap.Logger
}

type jobEnvelope struct {
	ID    string          `json:"id"`
	Input worker.JobInput `json:"input"`
}

func New(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/run", runJob(opts.Runner, log))
	router.GET("/health", health(opts))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": opts.Version})
	})

	return router
}

func runJob(runner Runner, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope jobEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "FAILED",
				"error": gin.H{
					"kind":    worker.KindValidation,
					"message": "malformed job envelope: " + err.Error(),
				},
			})
			return
		}

		if envelope.ID == "" {
			envelope.ID = uuid.NewString()
		}

		output, err := runner.Handle(c.Request.Context(), envelope.Input)
		if err != nil {
			kind := worker.KindOf(err)
			log.Warn("job failed",
				zap.String("job_id", envelope.ID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			c.JSON(statusFor(kind), gin.H{
				"id":     envelope.ID,
				"status": "FAILED",
				"error": gin.H{
					"kind":    kind,
					"message": err.Error(),
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":     envelope.ID,
			"status": "COMPLETED",
			"output": output,
		})
	}
}

func health(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		loaded := []string{}
		if opts.LoadedModels != nil {
			if names := opts.LoadedModels(); names != nil {
				loaded = names
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"device":        opts.Profile.Device,
			"precision":     opts.Profile.Precision,
			"fast_math":     opts.Profile.FastMath,
			"loaded_models": loaded,
		})
	}
}

func statusFor(kind worker.Kind) int {
	switch kind {
	case worker.KindValidation:
		return http.StatusBadRequest
	case worker.KindAcquisition:
		return http.StatusUnprocessableEntity
	case worker.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
