// internal/queue/amqp.go
package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/callforge/dialer-backend/internal/model"
)

// AMQPQueue publishes dial tasks to durable RabbitMQ queues.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects and declares the given queues as durable.
func DialAMQP(url string, queues ...string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	for _, name := range queues {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Publish(topic string, task model.DialTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",    // default exchange
		topic, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

var _ Queue = (*AMQPQueue)(nil)
