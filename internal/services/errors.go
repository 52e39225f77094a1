package services

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundBusy           = errors.New("round is being updated")
	ErrRoundFinished       = errors.New("round already finished")
	ErrUnauthorizedRound   = errors.New("round belongs to another user")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrSeedNotRevealed     = errors.New("server seed not revealed")
	ErrWalletContention    = errors.New("wallet update contention")
)
