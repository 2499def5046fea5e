package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/signals"
)

func (s *Server) registerIndicatorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-indicator",
		Method:      http.MethodGet,
		Path:        "/api/indicator",
		Summary:     "Indicator State",
		Description: "Current signals, the authoritative intent, and the state of every output lane",
		Tags:        []string{"indicator"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.IndicatorResponse, error) {
		if s.indicator == nil {
			return nil, huma.Error503ServiceUnavailable("indicator not running")
		}
		return &models.IndicatorResponse{Body: toIndicatorData(s.indicator.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "indicate",
		Method:        http.MethodPost,
		Path:          "/api/indicate/{kind}",
		Summary:       "Indicate",
		Description:   "Show a one-shot battery, connectivity or profile indication on the light",
		Tags:          []string{"indicator"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 409, 429, 503},
	}, func(_ context.Context, input *models.IndicateRequest) (*struct{}, error) {
		if s.indicator == nil {
			return nil, huma.Error503ServiceUnavailable("indicator not running")
		}
		kind, err := arbiter.ParseIndicateKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown indication", err)
		}
		if err := s.indicator.Indicate(kind); err != nil {
			if errors.Is(err, intent.ErrDeviceNotReady) {
				return nil, huma.Error409Conflict("no light configured", err)
			}
			if errors.Is(err, intent.ErrSuppressed) {
				return nil, huma.Error429TooManyRequests("indication suppressed, retry after the cooldown", err)
			}
			return nil, huma.Error500InternalServerError("indicate failed", err)
		}
		return &struct{}{}, nil
	})
}

func toIntentData(in intent.Intent) models.IntentData {
	d := models.IntentData{
		Class:  in.Class.String(),
		Reason: in.Reason,
		Seq:    in.Seq,
	}
	if in.IsSound() {
		d.Notes = len(in.Melody)
	} else {
		d.Color = in.Color.String()
		d.Mode = in.Mode.String()
	}
	return d
}

func toSignalsData(snap signals.Snapshot) models.SignalsData {
	d := models.SignalsData{
		Connected:     snap.Link.Connected,
		Advertising:   snap.Link.Advertising,
		Profile:       snap.Link.ProfileIndex,
		LinkKnown:     snap.LinkKnown,
		CapsLock:      snap.CapsLock.Active,
		CapsLockKnown: snap.CapsLockKnown,
		BootComplete:  snap.Boot.Complete,
		Transport:     snap.Endpoint.Transport.String(),
		Version:       snap.Version,
	}
	if !snap.Battery.Unknown {
		pct := snap.Battery.Percent
		d.BatteryPercent = &pct
	}
	return d
}

func toIndicatorData(st indicator.Status) models.IndicatorData {
	d := models.IndicatorData{
		Signals:    toSignalsData(st.Signals),
		Current:    toIntentData(st.Current),
		Pending:    st.Pending,
		Recomputes: st.Recomputes,
		Lanes:      make([]models.LaneData, 0, len(st.Lanes)),
	}
	for _, l := range st.Lanes {
		ld := models.LaneData{
			Name:          l.Name,
			State:         l.State,
			QueueDepth:    l.QueueDepth,
			QueueCapacity: l.QueueCap,
			Spam:          l.Spam,
			Admitted:      l.Admitted,
			Suppressed:    l.Suppressed,
			Degraded:      l.Degraded,
			Bypassed:      l.Bypassed,
			Dropped:       l.Dropped,
		}
		if l.Rendering != nil {
			r := toIntentData(*l.Rendering)
			ld.Rendering = &r
		}
		d.Lanes = append(d.Lanes, ld)
	}
	return d
}
