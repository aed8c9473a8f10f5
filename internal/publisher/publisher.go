// Package publisher pushes dwell-tier changes to yard displays and downstream consumers.
package publisher

import (
	"context"
	"fmt"
	"time"

	commonredis "guarita-loadqueue/common/redis"
	"guarita-loadqueue/internal/dwell"

	"github.com/go-redis/redis/v8"
)

// Alert event kinds
const (
	KindTierChanged = "dwell_tier_changed"
	KindCleared     = "dwell_cleared"
)

// AlertEvent a vehicle changed dwell tier or left the unit after an alert
type AlertEvent struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Plate        string     `json:"plate"`
	Driver       string     `json:"driver,omitempty"`
	EntryTime    string     `json:"entry_time,omitempty"`
	Tier         dwell.Tier `json:"tier"`
	PreviousTier dwell.Tier `json:"previous_tier"`
	Elapsed      int        `json:"elapsed_minutes"`
	Tick         uint64     `json:"tick"`
	At           time.Time  `json:"at"`
}

// AlertPublisher delivers one alert event
type AlertPublisher interface {
	PublishAlert(ctx context.Context, ev AlertEvent) error
}

// JSONPublisher the subset of the MQTT client used here
type JSONPublisher interface {
	PublishJSON(topic string, retained bool, v interface{}) error
}

// MQTTAlertPublisher publishes to "{topic}/{plate}", retained so displays get the last state on connect
type MQTTAlertPublisher struct {
	client JSONPublisher
	topic  string
}

// NewMQTTAlertPublisher creates an MQTT alert publisher
func NewMQTTAlertPublisher(client JSONPublisher, topic string) *MQTTAlertPublisher {
	return &MQTTAlertPublisher{client: client, topic: topic}
}

func (p *MQTTAlertPublisher) PublishAlert(_ context.Context, ev AlertEvent) error {
	return p.client.PublishJSON(fmt.Sprintf("%s/%s", p.topic, ev.Plate), true, ev)
}

// StreamAlertPublisher appends alerts to a Redis Stream
type StreamAlertPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamAlertPublisher creates a Redis Stream alert publisher
func NewStreamAlertPublisher(client *redis.Client, stream string, maxLen int64) *StreamAlertPublisher {
	return &StreamAlertPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamAlertPublisher) PublishAlert(ctx context.Context, ev AlertEvent) error {
	_, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev)
	return err
}
