package api

import (
	"net/http"

	"github.com/shaiso/b24robots/internal/robot"
)

// RegisterRoutes регистрирует маршруты роботов.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		RequestID(h.logger),
		Logging(h.logger),
	)

	// Результат задачи
	mux.Handle("POST /robots/task-result", chain(h.pipelineRobot(RobotTaskResult, robot.ModeResolve)))

	// Файлы результата
	mux.Handle("POST /robots/task-files/relocate", chain(h.pipelineRobot(RobotFilesRelocate, robot.ModeRelocate)))
	mux.Handle("POST /robots/task-files/attach", chain(h.pipelineRobot(RobotFilesAttach, robot.ModeAttach)))
	mux.Handle("POST /robots/task-files/attach-detect", chain(h.pipelineRobot(RobotFilesAttachAuto, robot.ModeAttachDetect)))

	// Контакты
	mux.Handle("POST /robots/contact/attach", chain(http.HandlerFunc(h.AttachContact)))
}
