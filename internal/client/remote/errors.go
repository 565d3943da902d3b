package remote

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/common"
)

var (
	errUnauthorized = fmt.Errorf("remote: %w", common.ErrUnauthorized)

	// ErrMalformedResponse is the cause of transport errors produced when a
	// response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)
