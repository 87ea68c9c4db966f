package translation

import "errors"

var (
	ErrUnknownProvider = errors.New("unknown translation provider")
	ErrNoTranslation   = errors.New("translation service returned no translation")
)
