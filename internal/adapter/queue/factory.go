package queue

import (
	"fmt"

	"go.uber.org/zap"
)

// New selects a queue driver by name. Supported drivers are "nats" and
// "rabbitmq".
func New(driver, url string, log *zap.Logger) (MessageQueue, error) {
	switch driver {
	case "nats":
		return NewNATSQueue(url, log)
	case "rabbitmq":
		return NewRabbitMQQueue(url, log)
	default:
		return nil, fmt.Errorf("queue: unknown driver %q", driver)
	}
}
