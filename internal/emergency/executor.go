// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package emergency

import (
	"context"

	"github.com/camsentry/camsentry/internal/models"
)

// Action is one unit of work handed to an executor: the action type plus
// the payload the plan built for it.
type Action struct {
	Type    string
	Payload map[string]string
}

// ActionResult is the executor's verdict, recorded verbatim in the
// response log.
type ActionResult struct {
	Status models.ActionStatus
	Detail string
}

// ActionExecutor performs one class of response action against an
// external integration. Implementations must respect ctx deadlines; the
// orchestrator time-bounds every call and treats a timeout like any other
// failure.
type ActionExecutor interface {
	Execute(ctx context.Context, incident *models.EmergencyIncident, action Action) ActionResult
}

// completed is a convenience result for successful actions.
func completed(detail string) ActionResult {
	return ActionResult{Status: models.ActionStatusCompleted, Detail: detail}
}

// failed wraps an execution error into a logged failure.
func failed(err error) ActionResult {
	return ActionResult{Status: models.ActionStatusFailed, Detail: err.Error()}
}
