package domain

import (
	"errors"
	"fmt"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceID   = errors.New("invalid_source_id")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInsufficientFunds = fmt.Errorf("%w: wallet", vipdomain.ErrInsufficientBalance)
)
