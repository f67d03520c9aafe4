package commandplane

import (
	"context"
	"encoding/json"

	"github.com/lsoc/neco/pkg/broker"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/remoteadmin"
	"github.com/lsoc/neco/pkg/versioncontrol"
)

// ComponentBus is the subset of broker.ComponentBus the plane publishes
// through. Declared locally so tests can fake it without a live MQTT client.
type ComponentBus interface {
	PublishExternalInterface(command, data string) error
}

// CentralBus is the subset of broker.CentralBus the plane publishes through.
type CentralBus interface {
	Publish(command, data string) error
}

// Plane dispatches inbound envelopes from both buses and implements the
// outbound collaborator interfaces pkg/broker and pkg/versioncontrol expect.
// It holds no buses at construction time; SetComponentBus/SetCentralBus wire
// them in once both the engine and the buses exist, breaking what would
// otherwise be a construction-order cycle (buses need a Dispatcher, the
// Dispatcher needs to publish replies back on those same buses).
type Plane struct {
	engine       *versioncontrol.Engine
	componentBus ComponentBus
	centralBus   CentralBus
}

// New builds a Plane bound to engine. The buses are wired in afterward via
// SetComponentBus/SetCentralBus.
func New(engine *versioncontrol.Engine) *Plane {
	return &Plane{engine: engine}
}

func (p *Plane) SetComponentBus(bus ComponentBus) { p.componentBus = bus }
func (p *Plane) SetCentralBus(bus CentralBus)     { p.centralBus = bus }

// HandleComponentBus implements broker.Dispatcher.
func (p *Plane) HandleComponentBus(env broker.Envelope) {
	logger := log.WithComponent("commandplane")
	timer := metrics.NewTimer()
	outcome := "ok"
	defer timer.ObserveDurationVec(metrics.CommandHandlingDuration, env.Command)
	defer func() { metrics.CommandsDispatchedTotal.WithLabelValues(env.Command, outcome).Inc() }()

	ctx := context.Background()

	switch env.Command {
	case TagRefreshUpdateManifest:
		p.engine.RefreshManifest(ctx)

	case TagStartUpdateDownloadAndInstall:
		if err := p.publishComponentBus(TagUpdateStarted, ""); err != nil {
			logger.Error().Err(err).Msg("could not publish UpdateStarted")
		}
		p.engine.StartUpdateDownloadAndInstall(ctx)

	case TagComponentStates:
		command, data := p.ComponentStatesEnvelope()
		if err := p.publishComponentBus(command, data); err != nil {
			logger.Error().Err(err).Msg("could not reply with ComponentStates")
			outcome = "error"
		}

	case TagComponentLog:
		reply, err := p.engine.GetComponentLogEnvelope(ctx, env.Data)
		if err != nil {
			logger.Error().Err(err).Str("request", env.Data).Msg("component log query failed")
			outcome = "error"
			return
		}
		if err := p.publishComponentBus(TagComponentLog, reply); err != nil {
			logger.Error().Err(err).Msg("could not reply with ComponentLog")
			outcome = "error"
		}

	default:
		logger.Warn().Str("command", env.Command).Msg("unrecognized component bus command")
		outcome = "unrecognized"
	}
}

// HandleCentralBus implements broker.Dispatcher.
func (p *Plane) HandleCentralBus(env broker.Envelope) {
	logger := log.WithComponent("commandplane")
	timer := metrics.NewTimer()
	outcome := "ok"
	defer timer.ObserveDurationVec(metrics.CommandHandlingDuration, env.Command)
	defer func() { metrics.CommandsDispatchedTotal.WithLabelValues(env.Command, outcome).Inc() }()

	ctx := context.Background()

	switch env.Command {
	case TagRemoteManagement:
		if err := remoteadmin.InstallPublicKey(ctx, env.Data); err != nil {
			logger.Error().Err(err).Msg("could not install authorized key")
			outcome = "error"
			return
		}
		wan, err := remoteadmin.WANAddress(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("could not determine WAN address")
			outcome = "error"
			return
		}
		if p.centralBus != nil {
			if err := p.centralBus.Publish(TagRemoteManagement, wan); err != nil {
				logger.Error().Err(err).Msg("could not publish WAN address")
				outcome = "error"
			}
		}

	case TagUpdateInstall:
		// Reserved, currently a no-op.

	default:
		logger.Warn().Str("command", env.Command).Msg("unrecognized central bus command")
		outcome = "unrecognized"
	}
}

// PublishState implements versioncontrol.Publisher.
func (p *Plane) PublishState(message string) {
	if err := p.publishComponentBus(TagState, message); err != nil {
		log.WithComponent("commandplane").Error().Err(err).Msg("could not publish State")
	}
}

// PublishChangelogs implements versioncontrol.Publisher.
func (p *Plane) PublishChangelogs(text string) {
	if err := p.publishComponentBus(TagChangelogs, text); err != nil {
		log.WithComponent("commandplane").Error().Err(err).Msg("could not publish Changelogs")
	}
}

// ComponentStatesEnvelope implements broker.SnapshotProvider.
func (p *Plane) ComponentStatesEnvelope() (command, data string) {
	states := p.engine.GetComponentStates(context.Background())
	payload, err := json.Marshal(states)
	if err != nil {
		log.WithComponent("commandplane").Error().Err(err).Msg("could not marshal component states")
		return TagComponentStates, "[]"
	}
	return TagComponentStates, string(payload)
}

func (p *Plane) publishComponentBus(command, data string) error {
	if p.componentBus == nil {
		return nil
	}
	return p.componentBus.PublishExternalInterface(command, data)
}
