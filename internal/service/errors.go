package service

import "errors"

// Sentinel errors for service layer
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProvisionFailed    = errors.New("provisioning failed")
	ErrManualIntervention = errors.New("rollback failed, manual intervention required")
	ErrShuttingDown       = errors.New("provisioner is shutting down")
)
