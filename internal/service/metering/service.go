// Package metering runs the live energy-balance pipeline: debounce check,
// entity fetch through the cache-aside layer, weather fetch, simulation,
// battery persistence, load shedding, and broadcast to live sessions.
package metering

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/observability/telemetry"
	"github.com/homewatt/homewatt/internal/ports"
	"github.com/homewatt/homewatt/internal/service/simulation"
)

// ResultTTL is the debounce window: a second trigger inside it re-uses
// the cached payload instead of recomputing. Two computations in one
// window would double-apply the battery energy delta.
const ResultTTL = 4 * time.Second

const (
	defaultTimeStepHours = 1.0 / 60.0
	defaultTilt          = 30.0
	defaultAzimuth       = 180.0
)

type Service struct {
	assets        ports.AssetService
	weather       ports.WeatherProvider
	cache         ports.Cache
	broadcaster   ports.Broadcaster
	timeStepHours float64
	log           *zap.Logger
}

func NewService(
	assets ports.AssetService,
	weather ports.WeatherProvider,
	cache ports.Cache,
	broadcaster ports.Broadcaster,
	timeStepHours float64,
	log *zap.Logger,
) *Service {
	if timeStepHours <= 0 {
		timeStepHours = defaultTimeStepHours
	}
	return &Service{
		assets:        assets,
		weather:       weather,
		cache:         cache,
		broadcaster:   broadcaster,
		timeStepHours: timeStepHours,
		log:           log,
	}
}

func resultKey(accountID int64) string {
	return fmt.Sprintf("live_metering:%d", accountID)
}

func lockKey(accountID int64) string {
	return fmt.Sprintf("live_metering:lock:%d", accountID)
}

// ComputeAndPublish is the single pipeline entry point shared by the
// connection trigger, the periodic scheduler and the mutation-event
// worker. A run fails independently per account; the next trigger
// retries from scratch.
func (s *Service) ComputeAndPublish(ctx context.Context, accountID int64) error {
	start := time.Now()
	defer func() {
		telemetry.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	// Debounce: re-broadcast the cached payload verbatim and stop.
	if raw, err := s.cache.Get(ctx, resultKey(accountID)); err == nil && raw != "" {
		telemetry.DebounceHits.Inc()
		telemetry.PipelineRuns.WithLabelValues("debounced").Inc()
		s.broadcaster.Broadcast(accountID, []byte(raw))
		return nil
	}

	// Set-if-absent lock guarantees at most one concurrent computation
	// per account per window. A failed cache is not fatal; we just lose
	// the guarantee for this run.
	acquired, err := s.cache.SetNX(ctx, lockKey(accountID), "1", ResultTTL)
	if err != nil {
		s.log.Warn("Compute lock unavailable, proceeding unlocked",
			zap.Int64("account_id", accountID), zap.Error(err))
	} else if !acquired {
		telemetry.PipelineRuns.WithLabelValues("in_flight").Inc()
		return domain.ErrComputationInFlight
	} else {
		defer func() {
			if delErr := s.cache.Delete(context.WithoutCancel(ctx), lockKey(accountID)); delErr != nil {
				// Left to expire with the window.
				s.log.Debug("Compute lock left to expire", zap.Int64("account_id", accountID))
			}
		}()
	}

	result, err := s.compute(ctx, accountID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		telemetry.PipelineRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal metering result: %w", err)
	}

	// Best effort: a failed debounce write only widens the race window.
	if err := s.cache.Set(ctx, resultKey(accountID), payload, ResultTTL); err != nil {
		s.log.Warn("Result cache write skipped", zap.Int64("account_id", accountID), zap.Error(err))
	}

	s.broadcaster.Broadcast(accountID, payload)
	telemetry.PipelineRuns.WithLabelValues("ok").Inc()

	s.log.Debug("Published live metering result",
		zap.Int64("account_id", accountID),
		zap.Float64("production_kw", result.SolarProductionKW),
		zap.Float64("consumption_kw", result.HouseholdConsumptionKW),
		zap.Float64("grid_kw", result.GridContributionKW),
	)
	return nil
}

func (s *Service) compute(ctx context.Context, accountID int64) (*domain.LiveMeteringResult, error) {
	profile, err := s.assets.GetProfile(ctx, accountID)
	if err != nil {
		telemetry.PipelineRuns.WithLabelValues("missing_data").Inc()
		s.log.Warn("Metering run aborted: no profile", zap.Int64("account_id", accountID), zap.Error(err))
		return nil, err
	}

	// System, battery and devices are recoverable: a partially onboarded
	// account simply meters whatever it has.
	system, err := s.assets.GetEnergySystem(ctx, accountID)
	if err != nil {
		telemetry.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	var battery *domain.BatteryConfig
	if system != nil {
		battery, err = s.assets.GetBatteryForSystem(ctx, system.ID)
		if err != nil {
			telemetry.PipelineRuns.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	devices, err := s.assets.GetDevices(ctx, accountID)
	if err != nil {
		telemetry.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	tilt, azimuth := defaultTilt, defaultAzimuth
	if system != nil {
		tilt, azimuth = system.TiltDegrees, system.AzimuthDegrees
	}

	sample, err := s.weather.Fetch(ctx, profile.Latitude, profile.Longitude, tilt, azimuth)
	if err != nil {
		// No mutation has happened yet; the run just ends.
		telemetry.PipelineRuns.WithLabelValues("weather_failed").Inc()
		s.log.Warn("Metering run aborted: weather unavailable",
			zap.Int64("account_id", accountID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrWeatherUnavailable, err)
	}

	production := round2(simulation.SolarProduction(system, sample))
	consumption := round2(simulation.HouseholdConsumption(system, devices))

	upd := simulation.UpdateBatteryCharge(battery, production-consumption, s.timeStepHours)
	flow := round2(upd.FlowKW)
	loss := round2(upd.LossKW)
	charge := round2(upd.NewChargePercentage)

	grid := round2(simulation.GridContribution(production, consumption, flow, loss))

	var alarm string
	if battery != nil {
		// Store and cache are written in the same step; if the store
		// refuses, the computed payload is discarded rather than shown
		// with a charge that was never durably committed.
		if err := s.assets.UpdateBatteryCharge(ctx, battery, charge); err != nil {
			telemetry.PipelineRuns.WithLabelValues("store_failed").Inc()
			return nil, err
		}

		devices, alarm, err = s.shedNonCritical(ctx, accountID, system, devices, charge)
		if err != nil {
			telemetry.PipelineRuns.WithLabelValues("store_failed").Inc()
			return nil, err
		}
	}

	return &domain.LiveMeteringResult{
		Timestamp:               time.Now().UTC(),
		AccountID:               accountID,
		SolarProductionKW:       production,
		HouseholdConsumptionKW:  consumption,
		BatteryChargePercentage: charge,
		BatteryFlowKW:           flow,
		BatteryLossKW:           loss,
		GridContributionKW:      grid,
		IrradianceWm2:           round2(sample.IrradianceWm2),
		TemperatureC:            round2(sample.TemperatureC),
		IsDay:                   sample.IsDay,
		Alarm:                   alarm,
		Devices:                 devices,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
