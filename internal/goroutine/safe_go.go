package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/arbitration-backend/internal/logger"
)

// Пакет запускает фоновые горутины арбитража (hub вебсокетов, обход
// просроченных споров, насосы соединений) с перехватом panic: упавший
// фоновый обработчик логируется и не роняет сервер.

// SafeGo запускает fn в горутине с перехватом panic.
func SafeGo(fn func()) {
	go func() {
		defer logPanic()
		fn()
	}()
}

// SafeGoWithContext запускает fn с контекстом в горутине с перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer logPanic()
		fn(ctx)
	}()
}

func logPanic() {
	if r := recover(); r != nil {
		logger.Log.WithFields(logrus.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("Паника в фоновой горутине")
	}
}
