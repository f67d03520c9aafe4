package broker

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/settings"
)

// SnapshotProvider builds the component-states envelope published on
// external_interface right after the component bus connects. Implemented by
// pkg/commandplane.
type SnapshotProvider interface {
	ComponentStatesEnvelope() (command, data string)
}

// ComponentBus is the always-TLS connection to the local fleet broker: it
// carries fleet-internal commands (manifest refresh, install, state/log
// queries) and publishes component-state snapshots on external_interface.
type ComponentBus struct {
	client     mqtt.Client
	clientID   string
	dispatcher Dispatcher
	snapshot   SnapshotProvider
}

// NewComponentBus builds and connects the component bus client. cfg.CAFile
// roots trust for the broker's server certificate; there is no client
// certificate on this bus, only username/password. snapshot may be nil to
// skip the initial component-states publish.
func NewComponentBus(cfg settings.ComponentBrokerConfig, clientID string, dispatcher Dispatcher, snapshot SnapshotProvider) (*ComponentBus, error) {
	tlsConfig, err := componentBusTLSConfig(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("build component bus TLS config: %w", err)
	}

	bus := &ComponentBus{clientID: clientID, dispatcher: dispatcher, snapshot: snapshot}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", cfg.IPAddress, cfg.Port))
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetTLSConfig(tlsConfig)
	opts.SetKeepAlive(KeepAlive)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(bus.onConnect)
	opts.SetConnectionLostHandler(bus.onConnectionLost)
	opts.SetDefaultPublishHandler(bus.onMessage)

	bus.client = mqtt.NewClient(opts)
	bus.connectWithRetry()

	return bus, nil
}

func componentBusTLSConfig(caFile string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file %s: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", caFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// connectWithRetry attempts to connect, retrying unboundedly every
// ReconnectDelay on failure. It blocks until the first successful connect so
// callers can treat client construction as "connected or trying forever in
// the background" per the fatal-startup-error tier — the agent still starts
// with the bus down and picks up once the broker becomes reachable.
func (b *ComponentBus) connectWithRetry() {
	logger := log.WithComponent("broker.component")
	go func() {
		for {
			token := b.client.Connect()
			token.Wait()
			if token.Error() == nil {
				metrics.BrokerConnectionsTotal.WithLabelValues("component", "connected").Inc()
				return
			}
			logger.Error().Err(token.Error()).Msg("component bus connect failed, retrying")
			time.Sleep(ReconnectDelay)
		}
	}()
}

func (b *ComponentBus) onConnectionLost(_ mqtt.Client, err error) {
	log.WithComponent("broker.component").Warn().Err(err).Msg("component bus connection lost, reconnecting")
	time.Sleep(ReconnectDelay)
	b.connectWithRetry()
}

func (b *ComponentBus) onConnect(client mqtt.Client) {
	logger := log.WithComponent("broker.component")

	if token := client.Subscribe(componentBusInboundTopic, QoS, nil); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", componentBusInboundTopic).Msg("subscribe failed")
	}
	topic := componentBusInboundTopic + "/" + b.clientID
	if token := client.Subscribe(topic, QoS, nil); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
	}

	logger.Info().Msg("component bus connected")

	if b.snapshot != nil {
		command, data := b.snapshot.ComponentStatesEnvelope()
		if err := b.PublishExternalInterface(command, data); err != nil {
			logger.Error().Err(err).Msg("could not publish initial component-states snapshot")
		}
	}
}

func (b *ComponentBus) onMessage(_ mqtt.Client, msg mqtt.Message) {
	logger := log.WithComponent("broker.component")

	metrics.MessagesReceivedTotal.WithLabelValues("component", msg.Topic()).Inc()

	var env Envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		logger.Error().Err(err).Str("topic", msg.Topic()).Msg("could not decode envelope")
		return
	}

	b.dispatcher.HandleComponentBus(env)
}

// PublishExternalInterface publishes an Envelope on external_interface, the
// component bus's one outbound topic.
func (b *ComponentBus) PublishExternalInterface(command, data string) error {
	return b.publish(externalInterfaceTopic, Envelope{Command: command, Data: data})
}

func (b *ComponentBus) publish(topic string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	token := b.client.Publish(topic, QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.MessagesPublishedTotal.WithLabelValues("component", topic).Inc()
	return nil
}

// Disconnect gracefully closes the connection, waiting up to quiesceMillis
// for in-flight work to drain.
func (b *ComponentBus) Disconnect(quiesceMillis uint) {
	b.client.Disconnect(quiesceMillis)
}
