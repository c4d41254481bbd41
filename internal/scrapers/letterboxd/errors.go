package letterboxd

import "errors"

var (
	ErrMissingParameters  = errors.New("INCOMPLETE PARAMETERS")
	ErrNotValidURL        = errors.New("YOU NEED TO SUBMIT A VALID LETTERBOXD URL")
	ErrPageNotFound       = errors.New("PAGE NOT FOUND")
	ErrBackendUnavailable = errors.New("SCRAPPER METHOD FAILED")
	ErrMissingContent     = errors.New("NO HTML CONTENT FOUND")
	ErrSystem             = errors.New("THERE WAS A SYSTEM ERROR PROCESSING THE REQUEST")
	ErrPaginationLoop     = errors.New("PAGINATION LOOP DETECTED")
	ErrPageLimit          = errors.New("PAGE LIMIT EXCEEDED")
)
