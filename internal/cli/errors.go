package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/typicalmohit/tinku-ji/internal/app"
	"github.com/typicalmohit/tinku-ji/internal/config"
	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/session"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

const (
	ExitCodeSuccess    = 0
	ExitCodeGeneric    = 1
	ExitCodeUsage      = 2
	ExitCodeNotFound   = 3
	ExitCodePermission = 4
	ExitCodeAuthFailed = 5
	ExitCodeConflict   = 6
	ExitCodeIO         = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrNotSignedIn):
		return asExitError(ExitCodeAuthFailed, err)
	case errors.Is(err, session.ErrUserExists),
		errors.Is(err, session.ErrPhoneTypeExists),
		errors.Is(err, storage.ErrConstraintViolation),
		errors.Is(err, storage.ErrUniqueViolation),
		errors.Is(err, storage.ErrForeignKeyViolation),
		errors.Is(err, filestore.ErrFileAlreadyExists):
		return asExitError(ExitCodeConflict, err)
	case errors.Is(err, storage.ErrValidation),
		errors.Is(err, storage.ErrNoValidFields),
		errors.Is(err, app.ErrValidation),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, filestore.ErrFileTooLarge),
		errors.Is(err, filestore.ErrInvalidFileName):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, filestore.ErrOutsideRoot):
		return asExitError(ExitCodePermission, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, filestore.ErrFileOperationFailed) {
		return asExitError(ExitCodeIO, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}
