// Package notify publishes job completion events to RabbitMQ so downstream
// consumers (print station, dashboards) learn about finished renders without
// polling the API.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tixel/internal/pkg/logger"
)

type JobEvent struct {
	JobID            string    `json:"job_id"`
	Status           string    `json:"status"`
	PDFObjectKey     string    `json:"pdf_object_key,omitempty"`
	PreviewObjectKey string    `json:"preview_object_key,omitempty"`
	Error            string    `json:"error,omitempty"`
	FinishedAt       time.Time `json:"finished_at"`
}

type Publisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	log       *logger.Logger
}

// NewPublisher connects with retries and declares a durable queue.
func NewPublisher(rabbitURL, queueName string, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("notify")

	conn, err := connectWithRetry(rabbitURL, 10, 5*time.Second, log)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	log.Info("connected to RabbitMQ", "queue", queueName)

	return &Publisher{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		log:       log,
	}, nil
}

func connectWithRetry(url string, maxRetries int, delay time.Duration, log *logger.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}

		log.Warn("RabbitMQ connect failed, retrying",
			"attempt", i+1,
			"max_attempts", maxRetries,
			"error", err.Error(),
		)
		if i < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// Publish sends a persistent JSON event to the queue.
func (p *Publisher) Publish(ev JobEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("job event published", "job_id", ev.JobID, "status", ev.Status)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
