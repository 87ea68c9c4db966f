package prompt

import "errors"

var (
	ErrFragmentNotFound = errors.New("fragment not found")
	ErrLoadFailed       = errors.New("load failed")
)
