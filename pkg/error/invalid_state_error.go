package error

import "net/http"

// InvalidStateError is returned when an operation is attempted against a
// schedule whose current status does not allow it (e.g. updating a row that
// already published).
type InvalidStateError string

func (err InvalidStateError) Error() string {
	return string(err)
}

func (err InvalidStateError) ErrCode() string {
	return "INVALID_STATE_ERROR"
}

func (err InvalidStateError) StatusCode() int {
	return http.StatusConflict
}
