package metering

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func int64Ptr(v int64) *int64 { return &v }

const dtMinute = 1.0 / 60.0

func testProfile() *domain.AccountProfile {
	return &domain.AccountProfile{
		ID:        42,
		Email:     "casa@example.com",
		Latitude:  -23.55,
		Longitude: -46.63,
	}
}

func testSystem() *domain.EnergySystemConfig {
	return &domain.EnergySystemConfig{
		ID:                  3,
		AccountID:           42,
		TotalPanelWattageWp: 5000,
		InverterCapacityKW:  4.5,
		BaseLoadKW:          0.5,
		TiltDegrees:         30,
		AzimuthDegrees:      180,
		BatteryID:           int64Ptr(9),
		SystemKind:          domain.SystemKindGridTiedHybrid,
	}
}

func testBattery(chargePct float64) *domain.BatteryConfig {
	return &domain.BatteryConfig{
		ID:                      9,
		SystemID:                int64Ptr(3),
		CapacityKWh:             10,
		MaxChargeRateKW:         3,
		MaxDischargeRateKW:      4,
		Efficiency:              0.9,
		CurrentChargePercentage: chargePct,
	}
}

func testDevices() []domain.SwitchableDevice {
	return []domain.SwitchableDevice{
		{ID: 1, AccountID: 42, Name: "fridge", RatedPowerW: 0, Priority: domain.DevicePriorityCritical, Status: domain.DeviceStatusOn},
		{ID: 2, AccountID: 42, Name: "heater", RatedPowerW: 2000, Priority: domain.DevicePriorityNonEssential, Status: domain.DeviceStatusOn},
	}
}

func sunnySample() *domain.WeatherSample {
	return &domain.WeatherSample{IrradianceWm2: 800, TemperatureC: 25, IsDay: true}
}

func nightSample() *domain.WeatherSample {
	return &domain.WeatherSample{IrradianceWm2: 0, TemperatureC: 15, IsDay: false}
}

type pipelineFixture struct {
	assets      *mocks.MockAssetService
	weather     *mocks.MockWeatherProvider
	cache       *mocks.MockCache
	broadcaster *mocks.MockBroadcaster
	service     *Service

	weatherCalls       int
	batteryUpdateCalls int
}

func newPipelineFixture(battery *domain.BatteryConfig, devices []domain.SwitchableDevice, sample *domain.WeatherSample) *pipelineFixture {
	f := &pipelineFixture{
		cache:       mocks.NewMockCache(),
		broadcaster: mocks.NewMockBroadcaster(),
	}

	f.assets = &mocks.MockAssetService{
		GetProfileFunc: func(ctx context.Context, accountID int64) (*domain.AccountProfile, error) {
			return testProfile(), nil
		},
		GetEnergySystemFunc: func(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
			return testSystem(), nil
		},
		GetBatteryForSystemFunc: func(ctx context.Context, systemID int64) (*domain.BatteryConfig, error) {
			return battery, nil
		},
		GetDevicesFunc: func(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error) {
			return devices, nil
		},
		UpdateBatteryChargeFunc: func(ctx context.Context, b *domain.BatteryConfig, percentage float64) error {
			f.batteryUpdateCalls++
			b.CurrentChargePercentage = percentage
			return nil
		},
	}

	f.weather = &mocks.MockWeatherProvider{
		FetchFunc: func(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error) {
			f.weatherCalls++
			return sample, nil
		},
	}

	f.service = NewService(f.assets, f.weather, f.cache, f.broadcaster, dtMinute, newTestLogger())
	return f
}

func decodeResult(t *testing.T, payload []byte) *domain.LiveMeteringResult {
	t.Helper()
	var result domain.LiveMeteringResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("broadcast payload not decodable: %v", err)
	}
	return &result
}

func within(t *testing.T, got, want, tolerance float64, name string) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tolerance)
	}
}

func TestComputeAndPublish_SunnyChargeCycle(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	sent := f.broadcaster.Sent(42)
	if len(sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(sent))
	}
	result := decodeResult(t, sent[0])

	// 5 kWp at 800 W/m2, 80% system efficiency, no thermal derate.
	within(t, result.SolarProductionKW, 3.2, 0.001, "production")
	// 0.5 kW base plus the 2 kW heater.
	within(t, result.HouseholdConsumptionKW, 2.5, 0.001, "consumption")
	// 0.7 kW surplus charges at 90% efficiency.
	within(t, result.BatteryFlowKW, 0.63, 0.001, "battery flow")
	within(t, result.BatteryLossKW, 0.07, 0.001, "battery loss")
	within(t, result.BatteryChargePercentage, 50.105, 0.02, "charge")
	// (cons - prod) + flow + loss balances to zero.
	within(t, result.GridContributionKW, 0, 0.001, "grid")

	if result.Alarm != "" {
		t.Errorf("no alarm expected, got %q", result.Alarm)
	}
	if f.batteryUpdateCalls != 1 {
		t.Errorf("expected one battery persist, got %d", f.batteryUpdateCalls)
	}
	if !f.cache.Contains("live_metering:42") {
		t.Error("expected the result to land in the debounce cache")
	}
}

func TestComputeAndPublish_DebounceRebroadcastsVerbatim(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())

	cached := `{"account_id":42,"solar_production_kw":1.23}`
	f.cache.Set(ctx, "live_metering:42", cached, ResultTTL)

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	sent := f.broadcaster.Sent(42)
	if len(sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(sent))
	}
	if string(sent[0]) != cached {
		t.Errorf("debounced payload must be re-broadcast verbatim, got %s", sent[0])
	}
	if f.weatherCalls != 0 {
		t.Errorf("debounce hit must skip the pipeline, weather calls: %d", f.weatherCalls)
	}
	if f.batteryUpdateCalls != 0 {
		t.Errorf("debounce hit must not mutate the battery, calls: %d", f.batteryUpdateCalls)
	}
}

func TestComputeAndPublish_SecondCallWithinWindowMutatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if f.weatherCalls != 1 {
		t.Errorf("expected one computation inside the window, weather calls: %d", f.weatherCalls)
	}
	if f.batteryUpdateCalls != 1 {
		t.Errorf("expected one battery persist inside the window, got %d", f.batteryUpdateCalls)
	}
	if len(f.broadcaster.Sent(42)) != 2 {
		t.Errorf("both triggers must still broadcast, got %d", len(f.broadcaster.Sent(42)))
	}
}

func TestComputeAndPublish_LockHeldByAnotherRun(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())
	f.cache.SetNXFunc = func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
		return false, nil
	}

	err := f.service.ComputeAndPublish(ctx, 42)
	if !errors.Is(err, domain.ErrComputationInFlight) {
		t.Fatalf("expected ErrComputationInFlight, got %v", err)
	}
	if len(f.broadcaster.Sent(42)) != 0 {
		t.Error("a skipped run must not broadcast")
	}
}

func TestComputeAndPublish_WeatherFailureAbortsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())
	f.weather.FetchFunc = func(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error) {
		return nil, errors.New("upstream timeout")
	}

	err := f.service.ComputeAndPublish(ctx, 42)
	if !errors.Is(err, domain.ErrWeatherUnavailable) {
		t.Fatalf("expected ErrWeatherUnavailable, got %v", err)
	}
	if f.batteryUpdateCalls != 0 {
		t.Error("weather failure must abort before any mutation")
	}
	if len(f.broadcaster.Sent(42)) != 0 {
		t.Error("weather failure must not broadcast")
	}
	if f.cache.Contains("live_metering:42") {
		t.Error("weather failure must not populate the debounce cache")
	}
}

func TestComputeAndPublish_MissingProfileIsFatal(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())
	f.assets.GetProfileFunc = func(ctx context.Context, accountID int64) (*domain.AccountProfile, error) {
		return nil, domain.ErrProfileNotFound
	}

	err := f.service.ComputeAndPublish(ctx, 42)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if len(f.broadcaster.Sent(42)) != 0 {
		t.Error("a run without a profile must not broadcast")
	}
}

func TestComputeAndPublish_StoreFailureDiscardsPayload(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(50), testDevices(), sunnySample())
	f.assets.UpdateBatteryChargeFunc = func(ctx context.Context, b *domain.BatteryConfig, percentage float64) error {
		return errors.New("connection reset")
	}

	if err := f.service.ComputeAndPublish(ctx, 42); err == nil {
		t.Fatal("expected store failure to propagate")
	}
	if len(f.broadcaster.Sent(42)) != 0 {
		t.Error("a payload whose charge never committed must be discarded")
	}
	if f.cache.Contains("live_metering:42") {
		t.Error("a discarded payload must not enter the debounce cache")
	}
}

func TestComputeAndPublish_NoSystemStillMeters(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil, nil, sunnySample())
	f.assets.GetEnergySystemFunc = func(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
		return nil, nil
	}

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("partially onboarded account must still meter, got %v", err)
	}

	sent := f.broadcaster.Sent(42)
	if len(sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(sent))
	}
	result := decodeResult(t, sent[0])
	within(t, result.SolarProductionKW, 0, 0.001, "production")
	within(t, result.HouseholdConsumptionKW, 0, 0.001, "consumption")
	within(t, result.GridContributionKW, 0, 0.001, "grid")
}

func TestComputeAndPublish_LowBatterySheds(t *testing.T) {
	ctx := context.Background()
	devices := testDevices()
	shedCalls := []int64{}

	f := newPipelineFixture(testBattery(20), devices, nightSample())
	f.assets.SetDeviceStateFunc = func(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
		if status != domain.DeviceStatusOff {
			t.Errorf("shedding must only switch devices off, got %s", status)
		}
		shedCalls = append(shedCalls, deviceID)
		return nil
	}
	replaced := false
	f.assets.ReplaceDeviceListCacheFunc = func(ctx context.Context, accountID int64, systemID *int64, devs []domain.SwitchableDevice) error {
		replaced = true
		return nil
	}

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	sent := f.broadcaster.Sent(42)
	if len(sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(sent))
	}
	result := decodeResult(t, sent[0])

	if result.Alarm == "" {
		t.Error("expected the low battery alarm in the payload")
	}
	if len(shedCalls) != 1 || shedCalls[0] != 2 {
		t.Errorf("expected only the non-critical heater to be shed, got %v", shedCalls)
	}
	if !replaced {
		t.Error("expected the device list cache to be rewritten after shedding")
	}

	for _, d := range result.Devices {
		switch d.Priority {
		case domain.DevicePriorityCritical:
			if d.Status != domain.DeviceStatusOn {
				t.Errorf("critical device %s must stay on", d.Name)
			}
		default:
			if d.Status != domain.DeviceStatusOff {
				t.Errorf("non-critical device %s must be off after shedding", d.Name)
			}
		}
	}
}

func TestComputeAndPublish_HealthyChargeDoesNotShed(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(testBattery(80), testDevices(), nightSample())
	shed := false
	f.assets.SetDeviceStateFunc = func(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
		shed = true
		return nil
	}

	if err := f.service.ComputeAndPublish(ctx, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if shed {
		t.Error("no shedding expected above the threshold")
	}

	result := decodeResult(t, f.broadcaster.Sent(42)[0])
	if result.Alarm != "" {
		t.Errorf("no alarm expected, got %q", result.Alarm)
	}
}
