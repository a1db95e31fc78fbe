package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler отвечает на проверки живости сервиса арбитража.
type HealthHandler struct {
	db *sqlx.DB
}

// NewHealthHandler создаёт health handler.
func NewHealthHandler(db *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse — ответ проверки живости.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health. Сервис считается живым, когда база
// отвечает и схема арбитража накатана: без споров в базе API бесполезен.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	started := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "healthy (" + time.Since(started).Round(time.Millisecond).String() + ")"

		var migrations int
		if err := h.db.GetContext(ctx, &migrations, `SELECT COUNT(*) FROM schema_migrations`); err != nil || migrations == 0 {
			checks["migrations"] = "unhealthy: схема не накатана"
			status = "unhealthy"
		} else {
			checks["migrations"] = "healthy"
		}
	}

	if stats := h.db.Stats(); stats.WaitCount > 0 && stats.WaitDuration/time.Duration(stats.WaitCount) > time.Second {
		checks["connection_pool"] = "warning: соединения подолгу ждут освобождения пула"
	} else {
		checks["connection_pool"] = "healthy"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}
