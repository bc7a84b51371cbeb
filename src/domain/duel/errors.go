package duel

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionAlreadyEnded = errors.New("session already ended")
	ErrCooldownActive      = errors.New("attack on cooldown")
	ErrNotParticipant      = errors.New("connection is not part of this session")
	ErrUnknownAttackKind   = errors.New("unknown attack kind")
)
