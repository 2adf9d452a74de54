// v1
// internal/telemetry/mqtt.go
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/riverbotics/aquafleet/internal/storage"
)

// MQTTPublisher sends readings to water/quality/<robotID> and waste
// pickups to water/waste/<robotID> at QoS 1.
type MQTTPublisher struct {
	client mqtt.Client
	log    *slog.Logger
}

// NewMQTTPublisher connects to the broker. Connection failure is returned
// so the caller can fall back to a nop sink rather than crash the fleet.
func NewMQTTPublisher(brokerAddr, clientID string, log *slog.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(brokerAddr).SetClientID(clientID)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerAddr, token.Error())
	}
	log.Info("mqtt publisher connected", "broker", brokerAddr, "clientId", clientID)
	return &MQTTPublisher{client: c, log: log}, nil
}

// PublishRecord publishes the quality payload and, when a waste event is
// attached, the waste payload. Tokens are not awaited beyond the context:
// the broker acknowledges in the background.
func (p *MQTTPublisher) PublishRecord(ctx context.Context, rec storage.Record) error {
	if err := p.publish(ctx, "water/quality/"+rec.RobotID, qualityPayloadFor(rec)); err != nil {
		return err
	}
	if rec.Waste.Detected {
		if err := p.publish(ctx, "water/waste/"+rec.RobotID, wastePayloadFor(rec)); err != nil {
			return err
		}
	}
	return nil
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	token := p.client.Publish(topic, 1, false, b)
	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker after flushing in-flight messages.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
