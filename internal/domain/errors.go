package domain

import "errors"

var (
	// ErrProfileNotFound aborts a metering run: without the owning profile
	// there are no coordinates to compute against.
	ErrProfileNotFound = errors.New("account profile not found")

	ErrBatteryNotFound = errors.New("battery not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrSystemNotFound  = errors.New("energy system not found")

	// ErrBatteryAlreadyAttached rejects a second battery on a system that
	// still references one.
	ErrBatteryAlreadyAttached = errors.New("system already references a battery")

	// ErrInvalidSystemKind is returned when the battery reference does not
	// match the system kind (grid_tied must not have one, hybrid must).
	ErrInvalidSystemKind = errors.New("battery reference does not match system kind")

	// ErrWeatherUnavailable is returned when the irradiance provider could
	// not deliver a usable sample after retries.
	ErrWeatherUnavailable = errors.New("weather data unavailable")

	// ErrComputationInFlight is returned when another pipeline run holds
	// the per-account compute lock.
	ErrComputationInFlight = errors.New("computation already in flight")
)
