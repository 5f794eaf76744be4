package constants

// Process exit codes. Every fatal failure maps onto exactly one of these.
const (
	ExitOK            = 0
	ExitUnknown       = 1
	ExitConfiguration = 3
	ExitIO            = 4
	ExitFormat        = 5
	ExitIntegrity     = 6
	ExitDB            = 7
)

// CodedError is a sentinel error carrying the exit code the run terminates with.
// Wrap it with fmt.Errorf("%w: ...: %w", constants.ErrFormat, cause) so that both
// the taxonomy and the cause stay reachable through errors.Is / errors.As.
type CodedError struct {
	msg  string
	code int
}

func NewCodedError(msg string, code int) *CodedError {
	return &CodedError{msg: msg, code: code}
}

func (e *CodedError) Error() string {
	return e.msg
}

func (e *CodedError) Code() int {
	return e.code
}

var (
	ErrConfiguration = NewCodedError("configuration error", ExitConfiguration)
	ErrIO            = NewCodedError("io error", ExitIO)
	ErrFormat        = NewCodedError("format error", ExitFormat)
	ErrIntegrity     = NewCodedError("integrity error", ExitIntegrity)
	ErrDB            = NewCodedError("db error", ExitDB)
	ErrDBNotFound    = NewCodedError("not found", ExitDB)
)
