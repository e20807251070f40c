package messagebroker

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Infatoshi/rusteze/common/utils"
)

// MemoryClient is an in-process broker used when the session and its
// consumers (recorder, viz) live in the same binary. Each subscription
// gets one dispatch goroutine fed from a buffered queue, so messages on
// a given channel:topic are delivered in publish order. A subscriber
// falling behind loses newest messages rather than stalling the
// publisher.
type MemoryClient struct {
	mutex  sync.Mutex
	queues map[string]chan BrokerMessage
}

const subscriptionQueueSize = 64

func NewMemoryClient() (*MemoryClient, error) {
	c := &MemoryClient{
		queues: make(map[string]chan BrokerMessage),
	}

	return c, nil
}

func (client *MemoryClient) Subscribe(channel string, topic string, onmessage SubscriptionCallback) error {
	queue := make(chan BrokerMessage, subscriptionQueueSize)

	client.mutex.Lock()
	client.queues[channel+":"+topic] = queue
	client.mutex.Unlock()

	go func() {
		for msg := range queue {
			onmessage(msg)
		}
	}()

	return nil
}

func (client *MemoryClient) Publish(channel string, topic string, payload interface{}) error {

	client.mutex.Lock()
	queue := client.queues[channel+":"+topic]
	client.mutex.Unlock()

	if queue == nil {
		return nil
	}

	res, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := BrokerMessage{
		Timestamp: time.Now().Format(time.RFC3339),
		Topic:     topic,
		Channel:   channel,
		Data:      res,
	}

	select {
	case queue <- msg:
	default:
		utils.Debug("messagebroker", "Dropping message on "+channel+":"+topic+"; subscriber is late")
	}

	return nil
}
