package main

import "errors"

var (
	ErrGameOver         = errors.New("game over")
	ErrInvalidDirection = errors.New("invalid request, direction is required")
	ErrNameRequired     = errors.New("player name is required")
	ErrMatchNotFound    = errors.New("match not found")
	ErrTooManyMatches   = errors.New("too many active matches")
	ErrInvalidToken     = errors.New("invalid token")
)
