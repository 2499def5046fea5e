package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/logging"
)

// registerLogRoutes registers the log history and log streaming endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Log entries held in the in-memory ring buffer, optionally only those after a sequence number",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		resp := &models.LogsResponse{}
		resp.Body.Entries = []models.LogEntryData{}

		buffer := logging.GetBuffer()
		if buffer == nil {
			return resp, nil
		}
		entries := buffer.ReadAll()
		if input.Since > 0 {
			entries = buffer.Since(input.Since)
		}
		for _, e := range entries {
			resp.Body.Entries = append(resp.Body.Entries, models.LogEntryData{
				Seq:        e.Seq,
				Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
				Level:      e.Level,
				Module:     e.Module,
				Message:    e.Message,
				Attributes: e.Attributes,
			})
		}
		resp.Body.Count = len(resp.Body.Entries)
		return resp, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost;
		// the sequence number drops the overlap.
		eventCh := make(chan any, 100)
		if s.eventBus != nil {
			unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
			defer unsubscribe()
		}

		var last uint64
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				event := events.LogEntryEvent{
					Seq:        entry.Seq,
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}
				if err := send.Data(event); err != nil {
					return
				}
				last = entry.Seq
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LogEntryEvent); ok && e.Seq != 0 && e.Seq <= last {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
