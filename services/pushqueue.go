package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	PUSH_DELIVERY_QUEUE     = "push_delivery_queue"
	PUSH_QUEUE_WORKER_COUNT = 5
)

// PushTask - задача на доставку одного пуша набору устройств.
// Кладется в Redis-очередь сканами и хендлерами, воркеры забирают
// через BLPOP и отдают в шлюз. Доставка best-effort.
type PushTask struct {
	Tokens []string `json:"tokens"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Link   string   `json:"link,omitempty"`
}

// PushEnqueuer - то, что нужно сервисам, порождающим пуши
type PushEnqueuer interface {
	EnqueuePush(ctx context.Context, task PushTask) error
}

type PushQueueService struct {
	gateway PushGateway
}

func NewPushQueueService(gateway PushGateway) *PushQueueService {
	return &PushQueueService{gateway: gateway}
}

// StartWorkers запускает воркеры доставки пушей
func (qs *PushQueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < PUSH_QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

func (qs *PushQueueService) worker(ctx context.Context, workerID int) {
	log.Printf("Push delivery worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Push delivery worker %d stopping", workerID)
			return
		default:
			result, err := RedisClient.BLPop(ctx, 5*time.Second, PUSH_DELIVERY_QUEUE).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				log.Printf("Worker %d error getting task: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var task PushTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				log.Printf("Worker %d error unmarshaling task: %v", workerID, err)
				continue
			}

			qs.processTask(ctx, &task, workerID)
		}
	}
}

func (qs *PushQueueService) processTask(ctx context.Context, task *PushTask, workerID int) {
	tokens := make([]string, 0, len(task.Tokens))
	for _, token := range task.Tokens {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return
	}
	if qs.gateway == nil {
		log.Printf("Worker %d dropping push task, no delivery gateway configured", workerID)
		RecordPushDelivery("dropped")
		return
	}

	if err := qs.gateway.Send(ctx, tokens, task.Title, task.Body, task.Link); err != nil {
		// Потеря пуша допустима, запрос инициатора уже завершен
		log.Printf("Worker %d push delivery failed: %v", workerID, err)
		RecordPushDelivery("error")
		return
	}
	RecordPushDelivery("ok")
}

// EnqueuePush добавляет задачу доставки в очередь
func (qs *PushQueueService) EnqueuePush(ctx context.Context, task PushTask) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}
	if len(task.Tokens) == 0 {
		return nil
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal push task: %w", err)
	}

	if err := RedisClient.RPush(ctx, PUSH_DELIVERY_QUEUE, taskData).Err(); err != nil {
		return fmt.Errorf("failed to enqueue push task: %w", err)
	}
	return nil
}

// GetStats возвращает статистику очереди
func (qs *PushQueueService) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	if RedisClient != nil {
		ctx := context.Background()
		stats["queue_length"] = RedisClient.LLen(ctx, PUSH_DELIVERY_QUEUE).Val()
		stats["worker_count"] = PUSH_QUEUE_WORKER_COUNT
		stats["queue_name"] = PUSH_DELIVERY_QUEUE
	} else {
		stats["error"] = "Redis not available"
	}

	return stats
}

// PushQueueInstance глобальный экземпляр очереди доставки
var PushQueueInstance *PushQueueService

func InitPushQueue(gateway PushGateway) {
	PushQueueInstance = NewPushQueueService(gateway)
}
