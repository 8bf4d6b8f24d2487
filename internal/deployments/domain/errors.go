package domain

import (
	"errors"
	"fmt"
)

// Common errors returned by the deployment pipeline.
var (
	ErrUnsupportedConstructorShape = errors.New("unsupported constructor shape")
	ErrDeploymentFailed            = errors.New("deployment failed")
	ErrInvalidSpec                 = errors.New("invalid contract spec")
	ErrDuplicateContract           = errors.New("duplicate contract")
	ErrNoFactory                   = errors.New("contract has no compiled artifact")
	ErrAlreadyDeployed             = errors.New("contract already deployed in this run")
)

// UnsupportedConstructorShapeError reports a constructor the spec has no
// arguments for, or arguments that do not fit the declared parameter types.
type UnsupportedConstructorShapeError struct {
	Contract string
	Arity    int
	Declared []int
	Reason   string
}

func (e *UnsupportedConstructorShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: constructor with %d parameters: %s", e.Contract, e.Arity, e.Reason)
	}
	return fmt.Sprintf("%s: no arguments declared for a constructor with %d parameters (declared arities: %v)",
		e.Contract, e.Arity, e.Declared)
}

func (e *UnsupportedConstructorShapeError) Is(target error) bool {
	return target == ErrUnsupportedConstructorShape
}

// DeploymentFailedError wraps the chain error that stopped a deployment.
type DeploymentFailedError struct {
	Contract string
	Err      error
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deploying %s: %v", e.Contract, e.Err)
}

func (e *DeploymentFailedError) Unwrap() error {
	return e.Err
}

func (e *DeploymentFailedError) Is(target error) bool {
	return target == ErrDeploymentFailed
}
