package qrbatch

import "errors"

// Error kinds. Errors returned by this package wrap one of these together with the
// underlying cause, so both can be matched with errors.Is.
var (
	// Fatal: abort the whole run.
	ErrInputRead = errors.New("input read error")
	ErrDirectory = errors.New("directory error")
	ErrFontLoad  = errors.New("font load error")

	// Per identifier: recorded as a Failure, the batch goes on.
	ErrSynthesis = errors.New("synthesis error")
	ErrLabel     = errors.New("label error")
	ErrVerify    = errors.New("verify error")
)

// IsFatal reports whether err aborts a run before any identifier is processed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInputRead) || errors.Is(err, ErrDirectory) || errors.Is(err, ErrFontLoad)
}
