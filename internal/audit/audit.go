// Package audit emits structured audit-trail entries through the
// context-carried request logger.
package audit

import (
	"context"

	"github.com/lumicast/core/pkg/log"
)

// Actions recognized by the audit log.
const (
	ActionLogin             = "credential.login"
	ActionLoginFailed       = "credential.login_failed"
	ActionLogout            = "credential.logout"
	ActionRefresh           = "credential.refresh"
	ActionRegistrRequest    = "registration.request"
	ActionRegistrConfirm    = "registration.confirm"
	ActionRecoveryRequest   = "recovery.request"
	ActionRecoveryConfirm   = "recovery.confirm"
	ActionProfileUpdate     = "profile.update"
	ActionPasswordChange    = "profile.password_change"
	ActionProfileDelete     = "profile.delete"
	ActionStreamCreate      = "stream.create"
	ActionStreamUpdate      = "stream.update"
	ActionStreamToggleState = "stream.toggle_state"
	ActionStreamDelete      = "stream.delete"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldDetail   = "detail"
	FieldTargetID = "target_id"
)

// Log emits an audit entry scoped to userID.
func Log(ctx context.Context, action string, userID int32, msg string) {
	log.Ctx(ctx).Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int32(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit entry with an extra free-text detail field.
func LogWithDetail(ctx context.Context, action string, userID int32, detail, msg string) {
	log.Ctx(ctx).Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int32(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
