// Package errors provides structured error types for better observability
// and programmatic error handling across the deployer.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeControllerCommand,
//	    "failed to sync application",
//	    cause,
//	    map[string]any{
//	        "app":   "acme-dev-billing",
//	        "stage": "sync",
//	    },
//	)
package errors
