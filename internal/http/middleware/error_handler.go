package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/arbitration-backend/internal/logger"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbitration-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно. Типизированные
// ошибки приложения отдаются клиенту с кодом и сообщением, прочее
// маскируется как внутренняя ошибка.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			logEntry := logger.Log.WithFields(logrus.Fields{
				"code":   appErr.Code,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			})
			// Нарушение консистентности — дефект, а не ошибка клиента.
			if appErr.Code == apperror.ErrCodeConsistency {
				logEntry.WithField("error", appErr.Error()).Error("Consistency violation")
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":  appErr.Code,
					"error": "внутренняя ошибка сервера",
				})
				return
			}
			logEntry.WithField("error", appErr.Message).Warn("Request rejected")
			c.JSON(appErr.HTTPStatus, gin.H{
				"code":  appErr.Code,
				"error": appErr.Message,
			})
			return
		}

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			statusCode = http.StatusNotFound
			message = "пользователь не найден"
		case errors.Is(err, repository.ErrInsufficientFunds):
			statusCode = http.StatusUnprocessableEntity
			message = "недостаточно средств"
		}

		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")

		c.JSON(statusCode, gin.H{"error": message})
	}
}
