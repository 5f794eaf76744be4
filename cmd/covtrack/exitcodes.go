package main

import (
	"errors"

	"github.com/ougirez/covtrack/internal/pkg/constants"
)

// exitCode maps err onto the code of the first coded error in its chain.
func exitCode(err error) int {
	if err == nil {
		return constants.ExitOK
	}
	var coded *constants.CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return constants.ExitUnknown
}
