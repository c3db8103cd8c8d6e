// Package rabbitmq carries analysis jobs from the API to the worker. The
// topology is main queue + retry queue (TTL dead-letters back to main) +
// DLQ for messages the worker rejects.
package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// JobMessage is the wire envelope; the worker loads everything else from the
// analysis_jobs row.
type JobMessage struct {
	JobID string `json:"job_id"`
}

type queueSpec struct {
	name string
	args amqp.Table
}

// topology lists the queues for one job stream, targets first: the DLQ and
// retry queue must exist before the main queue that dead-letters into them.
func topology(queue string) []queueSpec {
	return []queueSpec{
		{name: queue + ".dlq"},
		// retry queue: message TTL -> dead-letter back to main queue
		{name: queue + ".retry", args: amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue,
		}},
		// main queue: dead-letter to DLQ on reject/nack(requeue=false)
		{name: queue, args: amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue + ".dlq",
		}},
	}
}

// DeclareTopology declares the main, retry and DLQ queues on ch. The broker
// rejects a redeclaration with non-equivalent arguments, so the API publisher
// and the worker consumer both declare through this single definition.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	for _, q := range topology(queue) {
		if _, err := ch.QueueDeclare(
			q.name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false,
			q.args,
		); err != nil {
			return err
		}
	}
	return nil
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishJob(ctx context.Context, jobID string) error {
	body, err := json.Marshal(JobMessage{JobID: jobID})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
