package versioncontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lsoc/neco/pkg/executil"
	"github.com/lsoc/neco/pkg/log"
)

// ComponentState is one UpdateComponent's reported run state.
type ComponentState struct {
	Component string `json:"component"`
	State     string `json:"state"`
}

// GetComponentStates reports the run state of every configured component: a
// systemd unit is probed with systemctl is-active, a container with docker
// ps. A component with neither ServiceName nor ContainerName set is reported
// as "unknown".
func (e *Engine) GetComponentStates(ctx context.Context) []ComponentState {
	logger := log.WithComponent("versioncontrol")
	cfg := e.state.Settings()

	states := make([]ComponentState, 0, len(cfg.UpdateComponents))
	for _, c := range cfg.UpdateComponents {
		state := "unknown"

		switch {
		case c.ServiceName != "":
			res, err := executil.Run(ctx, "systemctl", "is-active", c.ServiceName)
			if err != nil {
				logger.Error().Err(err).Str("component", c.Name).Msg("systemctl is-active failed to run")
			} else {
				state = strings.TrimSpace(res.Stdout)
			}
		case c.ContainerName != "":
			res, err := executil.Run(ctx, "docker", "ps", "-qf", "name=^"+c.ContainerName+"$")
			if err != nil {
				logger.Error().Err(err).Str("component", c.Name).Msg("docker ps failed to run")
			} else if strings.TrimSpace(res.Stdout) != "" {
				state = "running"
			} else {
				state = "stopped"
			}
		}

		states = append(states, ComponentState{Component: c.Name, State: state})
	}

	return states
}

// ComponentLogRequest is the inbound {request, component} envelope data.
// Component is formatted "<name> - <Service|Container>"; the kind suffix is
// accepted but not consulted, since the matching UpdateComponent already
// says whether it runs as a service or a container.
type ComponentLogRequest struct {
	Request   string `json:"request"`
	Component string `json:"component"`
}

// ComponentLogReply is the {request, data} reply envelope data.
type ComponentLogReply struct {
	Request string `json:"request"`
	Data    string `json:"data"`
}

// GetComponentLogEnvelope parses a {request, component} request envelope,
// looks up the named component, and returns the marshaled {request, data}
// reply required by spec.
func (e *Engine) GetComponentLogEnvelope(ctx context.Context, requestEnvelope string) (string, error) {
	var req ComponentLogRequest
	if err := json.Unmarshal([]byte(requestEnvelope), &req); err != nil {
		return "", fmt.Errorf("parse component log request: %w", err)
	}

	name := strings.TrimSpace(req.Component)
	if idx := strings.Index(name, " - "); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}

	logText, err := e.GetComponentLog(ctx, name)
	if err != nil {
		return "", err
	}

	reply, err := json.Marshal(ComponentLogReply{Request: req.Request, Data: logText})
	if err != nil {
		return "", fmt.Errorf("marshal component log reply: %w", err)
	}
	return string(reply), nil
}

// GetComponentLog returns the tail of a component's log: journalctl for a
// systemd unit, docker logs for a container. An unknown component name
// yields an error.
func (e *Engine) GetComponentLog(ctx context.Context, component string) (string, error) {
	cfg := e.state.Settings()

	for _, c := range cfg.UpdateComponents {
		if c.Name != component {
			continue
		}

		switch {
		case c.ServiceName != "":
			res, err := executil.Run(ctx, "journalctl", "--no-pager", "-u", c.ServiceName)
			if err != nil {
				return "", fmt.Errorf("journalctl for %s: %w", component, err)
			}
			return res.Stdout, nil
		case c.ContainerName != "":
			res, err := executil.Run(ctx, "docker", "logs", "-t", c.ContainerName)
			if err != nil {
				return "", fmt.Errorf("docker logs for %s: %w", component, err)
			}
			return res.Stdout + res.Stderr, nil
		default:
			return "", fmt.Errorf("component %s has neither a service nor a container name", component)
		}
	}

	return "", fmt.Errorf("unknown component %q", component)
}
