package adapters

import (
	"errors"
	"fmt"

	"github.com/your-org/genie/internal/apperr"
)

var (
	ErrMissingAPIKey = fmt.Errorf("%w: missing api key", apperr.ErrConfiguration)
	ErrEmptyPrompt   = fmt.Errorf("%w: prompt is empty", apperr.ErrInvalidInput)
	ErrEmptyResponse = errors.New("no response from model")
)
