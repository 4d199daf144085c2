package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/robot"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// Коды роботов (совпадают с CODE при регистрации на портале).
const (
	RobotTaskResult      = "task_result"
	RobotFilesRelocate   = "task_files_relocate"
	RobotFilesAttach     = "task_files_attach"
	RobotFilesAttachAuto = "task_files_attach_detect"
	RobotContactAttach   = "contact_attach"
)

// pipelineRobot возвращает обработчик робота, работающего через robot.Pipeline.
// POST /robots/task-result, /robots/task-files/{relocate,attach,attach-detect}
func (h *Handler) pipelineRobot(name string, mode robot.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := ParseRobotRequest(r)
		if err != nil {
			telemetry.ObserveInvocation(name, telemetry.OutcomeInvalid)
			BadRequest(w, err.Error())
			return
		}

		params, err := pipelineRequest(mode, req)
		if err != nil {
			h.logger.Warn("invalid robot call", "robot", name, "error", err)
			telemetry.ObserveInvocation(name, telemetry.OutcomeInvalid)
			BadRequest(w, err.Error())
			return
		}

		inv := domain.NewInvocation(name, req.Auth, req.EventToken)
		logger := telemetry.WithRobot(telemetry.FromContext(r.Context()), name, inv.Auth.Host())
		ctx := telemetry.WithLogger(r.Context(), logger)

		rec := domain.NewInvocationRecord(inv)
		rec.TaskID = params.TaskID
		if params.Target != nil {
			rec.EntityType = string(params.Target.Kind)
			rec.EntityID = params.Target.EntityID
		}

		out, err := robot.NewPipeline(logger).Run(ctx, h.client.Session(inv.Auth), inv, params)

		var status int
		switch {
		case errors.Is(err, robot.ErrTaskNotFound):
			status = http.StatusNotFound
			rec.Message = err.Error()
			telemetry.ObserveInvocation(name, telemetry.OutcomeNotFound)
			NotFound(w, err.Error(), inv.ID.String())

		case err != nil:
			status = http.StatusInternalServerError
			rec.Message = err.Error()
			telemetry.ObserveInvocation(name, telemetry.OutcomeError)
			InternalError(w, logger, err, inv.ID.String())

		default:
			status = http.StatusOK
			rec.Success = out.Success
			rec.Message = out.Message
			rec.FileIDs = out.FileIDs
			rec.Callback = string(out.Callback)

			outcome := telemetry.OutcomeOK
			if !out.Success {
				outcome = telemetry.OutcomeDegraded
			}
			telemetry.ObserveInvocation(name, outcome)
			Success(w, RobotFromOutcome(inv, out))
		}

		rec.Finish(status, time.Now())
		h.complete(ctx, rec)
	}
}

// AttachContact обрабатывает робота привязки контакта по телефону.
// POST /robots/contact/attach
func (h *Handler) AttachContact(w http.ResponseWriter, r *http.Request) {
	const name = RobotContactAttach

	req, err := ParseRobotRequest(r)
	if err != nil {
		telemetry.ObserveInvocation(name, telemetry.OutcomeInvalid)
		BadRequest(w, err.Error())
		return
	}

	params, err := contactRequest(req)
	if err != nil {
		h.logger.Warn("invalid robot call", "robot", name, "error", err)
		telemetry.ObserveInvocation(name, telemetry.OutcomeInvalid)
		BadRequest(w, err.Error())
		return
	}

	inv := domain.NewInvocation(name, req.Auth, req.EventToken)
	logger := telemetry.WithRobot(telemetry.FromContext(r.Context()), name, inv.Auth.Host())
	ctx := telemetry.WithLogger(r.Context(), logger)

	rec := domain.NewInvocationRecord(inv)
	rec.EntityType = string(params.Kind)
	rec.EntityID = params.EntityID

	out, err := robot.NewContactMatcher(logger).AttachContact(ctx, h.client.Session(inv.Auth), inv, params)

	var status int
	switch {
	case errors.Is(err, robot.ErrContactNotFound):
		status = http.StatusNotFound
		telemetry.ObserveInvocation(name, telemetry.OutcomeNotFound)
		JSON(w, status, ContactFromOutcome(inv, params, out))

	case err != nil && out != nil:
		// Контакт найден, но портал не принял обновление
		status = http.StatusInternalServerError
		logger.Error("contact binding failed", "invocation_id", inv.ID, "error", err)
		telemetry.ObserveInvocation(name, telemetry.OutcomeError)
		JSON(w, status, ContactFromOutcome(inv, params, out))

	case err != nil:
		status = http.StatusInternalServerError
		telemetry.ObserveInvocation(name, telemetry.OutcomeError)
		InternalError(w, logger, err, inv.ID.String())

	default:
		status = http.StatusOK
		telemetry.ObserveInvocation(name, telemetry.OutcomeOK)
		Success(w, ContactFromOutcome(inv, params, out))
	}

	if out != nil {
		rec.Success = out.Success
		rec.Message = out.Message
		rec.Callback = string(out.Callback)
	} else if err != nil {
		rec.Message = err.Error()
	}
	rec.Finish(status, time.Now())
	h.complete(ctx, rec)
}
