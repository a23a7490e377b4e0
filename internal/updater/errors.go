package updater

import (
	"errors"
	"fmt"
)

// Kind classifies updater failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindHandoffTimeout means no usable install path arrived within the
	// handoff attempt budget.
	KindHandoffTimeout
	// KindInvalidTargetPath means the handoff named a directory that does not
	// exist.
	KindInvalidTargetPath
	// KindDownloadExhausted means every download attempt failed.
	KindDownloadExhausted
	// KindReplaceFailed means the package could not be applied to the install.
	KindReplaceFailed
)

func (k Kind) String() string {
	switch k {
	case KindHandoffTimeout:
		return "HandoffTimeout"
	case KindInvalidTargetPath:
		return "InvalidTargetPath"
	case KindDownloadExhausted:
		return "DownloadExhausted"
	case KindReplaceFailed:
		return "ReplaceFailed"
	default:
		return "Unknown"
	}
}

// Error is a classified updater failure.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status. Nil is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindHandoffTimeout:
		return 2
	case KindInvalidTargetPath:
		return 3
	case KindDownloadExhausted:
		return 4
	case KindReplaceFailed:
		return 5
	default:
		return 1
	}
}

// Diagnostic returns the operator-facing explanation for err.
func Diagnostic(err error) string {
	var ue *Error
	if !errors.As(err, &ue) {
		return err.Error()
	}
	switch ue.Kind {
	case KindHandoffTimeout:
		return "No info received after maximum retries. Closing."
	case KindInvalidTargetPath:
		return fmt.Sprintf("The target folder from the info file does not exist: %s", ue.Path)
	case KindDownloadExhausted:
		return "Failed to download the tool. Please check your internet connection."
	case KindReplaceFailed:
		return replaceDiagnostic(ue)
	default:
		return ue.Error()
	}
}

func replaceFailed(op, path string, err error) *Error {
	return &Error{Kind: KindReplaceFailed, Op: op, Path: path, Err: err}
}

// replaceDiagnostic words a ReplaceFailed error by the stage that failed.
func replaceDiagnostic(ue *Error) string {
	switch ue.Op {
	case "backup":
		return fmt.Sprintf("Failed to move old folder %s: %v", ue.Path, ue.Err)
	case "extract", "check package":
		return fmt.Sprintf("Failed to extract zip file: %v", ue.Err)
	case "open package":
		return fmt.Sprintf("The downloaded package is not a valid zip file: %v", ue.Err)
	case "remove", "write":
		return fmt.Sprintf("Failed to replace %s: %v", ue.Path, ue.Err)
	default:
		return fmt.Sprintf("Failed to install the update: %v", ue.Err)
	}
}
