package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	eventQueueKey = "incident_events"
)

//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks

// EventType - тип события жизненного цикла инцидента
type EventType string

const (
	EventIncidentCreated  EventType = "incident.created"
	EventIncidentVerified EventType = "incident.verified"
	EventIncidentResolved EventType = "incident.resolved"
)

// Event - событие для доставки во внешнюю систему оповещения
type Event struct {
	Type       EventType        `json:"type"`
	IncidentID uuid.UUID        `json:"incident_id"`
	ActorID    uuid.UUID        `json:"actor_id"`
	Incident   *models.Incident `json:"incident"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewEvent собирает событие по текущему снимку инцидента
func NewEvent(eventType EventType, incident *models.Incident, actorID uuid.UUID) Event {
	return Event{
		Type:       eventType,
		IncidentID: incident.ID,
		ActorID:    actorID,
		Incident:   incident,
		Timestamp:  time.Now().UTC(),
	}
}

// EventPublisher - интерфейс для публикации событий
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisEventPublisher - реализация EventPublisher, использующая очередь Redis
type RedisEventPublisher struct {
	redisClient *redis.Client
}

// NewRedisEventPublisher создает новый RedisEventPublisher
func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish публикует событие в очередь Redis
func (p *RedisEventPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// LPUSH добавляет в левую часть списка, воркер забирает справа
	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to Redis: %w", err)
	}
	return nil
}

// LogEventPublisher пишет события в лог. Используется в режиме без Redis.
type LogEventPublisher struct {
	logger *logrus.Logger
}

func NewLogEventPublisher(logger *logrus.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(_ context.Context, event Event) error {
	p.logger.WithFields(logrus.Fields{
		"event":       event.Type,
		"incident_id": event.IncidentID,
		"actor_id":    event.ActorID,
	}).Info("Incident event")
	return nil
}
