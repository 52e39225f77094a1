package services

import "micro-casino/internal/models"

type Broadcaster interface {
	BroadcastRoundResult(rec *models.RoundRecord)
}
