package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of signal changes, rendered intents and spam mode transitions",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":          models.HealthData{},
		"state":              models.IndicatorData{},
		"battery-changed":    events.BatteryChangedEvent{},
		"link-changed":       events.LinkChangedEvent{},
		"capslock-changed":   events.CapsLockChangedEvent{},
		"boot-complete":      events.BootCompleteEvent{},
		"endpoint-changed":   events.EndpointChangedEvent{},
		"indicate-requested": events.IndicateRequestedEvent{},
		"intent-rendered":    events.IntentRenderedEvent{},
		"spam-mode-changed":  events.SpamModeChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		if s.eventBus != nil {
			defer events.SubscribeIndicatorEvents(s.eventBus, eventCh)()
		}

		if err := send.Data(models.HealthData{Status: "ok", Message: "SSE connection established"}); err != nil {
			return
		}
		if s.indicator != nil {
			if err := send.Data(toIndicatorData(s.indicator.Status())); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
