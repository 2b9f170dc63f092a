package auth

import "github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"

var (
	ErrInvalidToken            = apperror.New(apperror.KindUnauthorized, "invalid or expired token")
	ErrTenantRequired          = apperror.New(apperror.KindForbidden, "token carries no company")
	ErrManagerAccessRequired   = apperror.New(apperror.KindForbidden, "manager access required")
	ErrInsufficientPermissions = apperror.New(apperror.KindForbidden, "insufficient permissions")
)
