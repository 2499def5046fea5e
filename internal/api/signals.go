package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/signals"
)

const apiSource = "api"

// registerSignalRoutes registers the signal injection endpoints. Signals go
// onto the event bus like those from NATS or the signal file.
func (s *Server) registerSignalRoutes() {
	signalOp := func(id, name, description string) huma.Operation {
		return huma.Operation{
			OperationID:   id,
			Method:        http.MethodPost,
			Path:          "/api/signals/" + name,
			Summary:       "Report " + name,
			Description:   description,
			Tags:          []string{"signals"},
			Security:      withAuth(),
			DefaultStatus: http.StatusAccepted,
			Errors:        []int{400, 401, 503},
		}
	}

	huma.Register(s.api, signalOp("signal-battery", "battery",
		"Report the state of charge. Omit percent to mark the level unknown."),
		func(_ context.Context, input *models.BatteryRequest) (*models.AcceptedResponse, error) {
			ev := events.BatteryChangedEvent{Unknown: true, Source: apiSource, Timestamp: timestamp()}
			if input.Body.Percent != nil {
				ev.Percent, ev.Unknown = *input.Body.Percent, false
			}
			return s.publishSignal("battery", ev)
		})

	huma.Register(s.api, signalOp("signal-link", "link",
		"Report the wireless link of the active profile"),
		func(_ context.Context, input *models.LinkRequest) (*models.AcceptedResponse, error) {
			return s.publishSignal("link", events.LinkChangedEvent{
				Connected:   input.Body.Connected,
				Advertising: input.Body.Advertising,
				Profile:     input.Body.Profile,
				Source:      apiSource,
				Timestamp:   timestamp(),
			})
		})

	huma.Register(s.api, signalOp("signal-capslock", "capslock",
		"Report the host caps lock state, either as a flag or as raw HID LED flags"),
		func(_ context.Context, input *models.CapsLockRequest) (*models.AcceptedResponse, error) {
			var flags uint8
			if input.Body.Active {
				flags = 0x02
			}
			if input.Body.Flags != nil {
				flags = *input.Body.Flags
			}
			return s.publishSignal("capslock", events.CapsLockChangedEvent{Flags: flags, Source: apiSource, Timestamp: timestamp()})
		})

	huma.Register(s.api, signalOp("signal-boot", "boot",
		"Mark startup complete. Sound cues are held back until then."),
		func(_ context.Context, _ *struct{}) (*models.AcceptedResponse, error) {
			return s.publishSignal("boot", events.BootCompleteEvent{Source: apiSource, Timestamp: timestamp()})
		})

	huma.Register(s.api, signalOp("signal-endpoint", "endpoint",
		"Report the active output transport"),
		func(_ context.Context, input *models.EndpointRequest) (*models.AcceptedResponse, error) {
			if _, err := signals.ParseTransport(input.Body.Transport); err != nil {
				return nil, huma.Error400BadRequest("invalid transport", err)
			}
			return s.publishSignal("endpoint", events.EndpointChangedEvent{
				Transport: input.Body.Transport,
				Source:    apiSource,
				Timestamp: timestamp(),
			})
		})
}

func (s *Server) publishSignal(name string, ev events.Event) (*models.AcceptedResponse, error) {
	if s.eventBus == nil {
		return nil, huma.Error503ServiceUnavailable("event bus not available")
	}
	s.eventBus.Publish(ev)
	s.logger.Debug("Signal published", "signal", name)
	return &models.AcceptedResponse{Body: models.AcceptedData{Signal: name}}, nil
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
