package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ActivityClient publishes auth activity events to the events exchange.
type ActivityClient struct {
	channel *amqp.Channel
	cfg     *config.QueueConfig
}

// NewActivityClient creates a new activity event publisher
func NewActivityClient(cfg *config.Configuration, channel *amqp.Channel) *ActivityClient {
	return &ActivityClient{
		channel: channel,
		cfg:     &cfg.Queue,
	}
}

// PublishActivity publishes an auth activity message to RabbitMQ
func (c *ActivityClient) PublishActivity(userID, serviceName, action string) error {
	return c.PublishActivityWithDetails(userID, serviceName, action, "", "")
}

// PublishActivityWithDetails publishes an auth activity message with IP and UserAgent
func (c *ActivityClient) PublishActivityWithDetails(userID, serviceName, action, ipAddress, userAgent string) error {
	message := models.ActivityMessage{
		UserID:      userID,
		ServiceName: serviceName,
		Action:      action,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Timestamp:   time.Now(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = c.channel.Publish(
		c.cfg.RabbitMQ.Exchange,
		c.cfg.RabbitMQ.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"service":     serviceName,
		"action":      action,
		"exchange":    c.cfg.RabbitMQ.Exchange,
		"routing_key": c.cfg.RabbitMQ.RoutingKey,
	}).Debug("Activity message published")

	return nil
}
