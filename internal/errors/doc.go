// Package errors provides error handling conventions for the mcpm CLI.
//
// Construction and wrapping are delegated to github.com/cockroachdb/errors,
// re-exported here as [New], [Newf], [Wrap] and [Wrapf] so that every package
// imports a single errors package.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [Is]:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found case
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, etc.)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional
// suggestion. [ExitCode] extracts the code from any error chain.
package errors
