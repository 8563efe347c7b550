package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/assignhub/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubBus publishes and consumes assignment events over Google Cloud
// Pub/Sub.
type PubSubBus struct {
	client             *pubsub.Client
	subscriptionSuffix string
}

// NewPubSubBus constructs a Pub/Sub event bus from config.
func NewPubSubBus(ctx context.Context, cfg config.PubSubConfig) (*PubSubBus, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubBus{
		client:             client,
		subscriptionSuffix: suffix,
	}, nil
}

// Publish sends an event to the assignment events topic.
func (p *PubSubBus) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	result := topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"type": event.Type},
	})
	_, err = result.Get(ctx)
	return err
}

// Subscribe consumes events from the assignment events topic until the
// context is cancelled.
func (p *PubSubBus) Subscribe(ctx context.Context, handler Handler) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	sub, err := p.ensureSubscription(ctx, Channel+p.subscriptionSuffix, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			msg.Nack()
			return
		}
		if err := handler(ctx, event); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubBus) Close() error {
	return p.client.Close()
}

func (p *PubSubBus) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	topic := p.client.Topic(Channel)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, Channel)
	}
	return topic, nil
}

func (p *PubSubBus) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
	}
	return sub, nil
}
