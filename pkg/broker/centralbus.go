package broker

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/settings"
)

// CentralBus is the connection to the remote fleet controller: TLS is
// optional here (compiled in but not required by the wire contract), and it
// carries fleet-wide commands (remote management) plus the agent's
// online/offline presence, announced via a Last Will.
type CentralBus struct {
	client     mqtt.Client
	clientID   string
	dispatcher Dispatcher
}

// NewCentralBus builds and connects the central bus client. tlsConfig may be
// nil to connect in plaintext.
func NewCentralBus(cfg settings.CentralBrokerConfig, clientID string, tlsConfig *tls.Config, dispatcher Dispatcher) *CentralBus {
	bus := &CentralBus{clientID: clientID, dispatcher: dispatcher}

	scheme := "tcp"
	if tlsConfig != nil {
		scheme = "ssl"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	opts.SetKeepAlive(KeepAlive)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(bus.onConnect)
	opts.SetConnectionLostHandler(bus.onConnectionLost)
	opts.SetDefaultPublishHandler(bus.onMessage)

	willPayload, _ := json.Marshal(Envelope{Command: "Offline"})
	opts.SetWill(bus.outboundTopic(), string(willPayload), QoS, false)

	bus.client = mqtt.NewClient(opts)
	bus.connectWithRetry()

	return bus
}

func (b *CentralBus) outboundTopic() string {
	return centralBusInboundTopic + "/" + b.clientID + centralBusOutboundTopicSuffix
}

func (b *CentralBus) connectWithRetry() {
	logger := log.WithComponent("broker.central")
	go func() {
		for {
			token := b.client.Connect()
			token.Wait()
			if token.Error() == nil {
				metrics.BrokerConnectionsTotal.WithLabelValues("central", "connected").Inc()
				return
			}
			logger.Error().Err(token.Error()).Msg("central bus connect failed, retrying")
			time.Sleep(ReconnectDelay)
		}
	}()
}

func (b *CentralBus) onConnectionLost(_ mqtt.Client, err error) {
	log.WithComponent("broker.central").Warn().Err(err).Msg("central bus connection lost, reconnecting")
	time.Sleep(ReconnectDelay)
	b.connectWithRetry()
}

func (b *CentralBus) onConnect(client mqtt.Client) {
	logger := log.WithComponent("broker.central")

	if token := client.Subscribe(centralBusInboundTopic, QoS, nil); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", centralBusInboundTopic).Msg("subscribe failed")
	}
	topic := centralBusInboundTopic + "/" + b.clientID
	if token := client.Subscribe(topic, QoS, nil); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
	}

	logger.Info().Msg("central bus connected")

	if err := b.Publish("Online", ""); err != nil {
		logger.Error().Err(err).Msg("could not publish Online envelope")
	}
}

func (b *CentralBus) onMessage(_ mqtt.Client, msg mqtt.Message) {
	logger := log.WithComponent("broker.central")

	metrics.MessagesReceivedTotal.WithLabelValues("central", msg.Topic()).Inc()

	var env Envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		logger.Error().Err(err).Str("topic", msg.Topic()).Msg("could not decode envelope")
		return
	}

	b.dispatcher.HandleCentralBus(env)
}

// Publish sends an Envelope on this client's .../out topic.
func (b *CentralBus) Publish(command, data string) error {
	payload, err := json.Marshal(Envelope{Command: command, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	topic := b.outboundTopic()
	token := b.client.Publish(topic, QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.MessagesPublishedTotal.WithLabelValues("central", topic).Inc()
	return nil
}

// Disconnect gracefully closes the connection.
func (b *CentralBus) Disconnect(quiesceMillis uint) {
	b.client.Disconnect(quiesceMillis)
}
