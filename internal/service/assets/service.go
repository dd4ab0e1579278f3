// Package assets is the cache-aside accessor over the four entity kinds
// (account profile, energy system, battery, switchable devices). Reads go
// cache first, fall back to the persistent store, and repopulate the
// cache with the entity's TTL class. Mutations write the store and the
// cache back-to-back so the two never diverge for longer than a single
// failed call.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/adapter/queue"
	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/observability/telemetry"
	"github.com/homewatt/homewatt/internal/ports"
)

// Queue subjects published after mutations so other components (and the
// metering trigger worker) observe fresh data.
const (
	SubjectDevicesChanged = "assets.devices.changed"
	SubjectBatteryChanged = "assets.battery.changed"
)

// ChangeEvent is the payload published on mutation subjects.
type ChangeEvent struct {
	AccountID int64 `json:"account_id"`
}

type Service struct {
	profiles  ports.ProfileRepository
	systems   ports.EnergySystemRepository
	batteries ports.BatteryRepository
	devices   ports.DeviceRepository
	cache     ports.Cache
	mq        queue.MessageQueue
	log       *zap.Logger
}

func NewService(
	profiles ports.ProfileRepository,
	systems ports.EnergySystemRepository,
	batteries ports.BatteryRepository,
	devices ports.DeviceRepository,
	cache ports.Cache,
	mq queue.MessageQueue,
	log *zap.Logger,
) ports.AssetService {
	return &Service{
		profiles:  profiles,
		systems:   systems,
		batteries: batteries,
		devices:   devices,
		cache:     cache,
		mq:        mq,
		log:       log,
	}
}

func (s *Service) GetProfile(ctx context.Context, accountID int64) (*domain.AccountProfile, error) {
	key := profileKey(accountID)

	var profile domain.AccountProfile
	if s.cacheGet(ctx, key, "profile", &profile) {
		return &profile, nil
	}

	stored, err := s.profiles.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %d: %w", accountID, err)
	}
	if stored == nil {
		return nil, domain.ErrProfileNotFound
	}

	s.cacheSet(ctx, key, stored, ProfileTTL)
	return stored, nil
}

func (s *Service) GetEnergySystem(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
	// The reverse index maps account -> system id so the snapshot can be
	// read without touching the store.
	if idStr, err := s.cache.Get(ctx, accountSystemKey(accountID)); err == nil && idStr != "" {
		if systemID, convErr := strconv.ParseInt(idStr, 10, 64); convErr == nil {
			var system domain.EnergySystemConfig
			if s.cacheGet(ctx, systemKey(systemID), "energy_system", &system) {
				return &system, nil
			}
		}
	}

	stored, err := s.systems.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch energy system for account %d: %w", accountID, err)
	}
	if stored == nil {
		// Recoverable: an account may not have finished onboarding yet.
		return nil, nil
	}

	s.cacheSet(ctx, systemKey(stored.ID), stored, SystemTTL)
	s.cacheSetRaw(ctx, accountSystemKey(accountID), strconv.FormatInt(stored.ID, 10), 0)
	return stored, nil
}

func (s *Service) GetBattery(ctx context.Context, batteryID int64) (*domain.BatteryConfig, error) {
	key := batteryKey(batteryID)

	var battery domain.BatteryConfig
	if s.cacheGet(ctx, key, "battery", &battery) {
		return &battery, nil
	}

	stored, err := s.batteries.FindByID(ctx, batteryID)
	if err != nil {
		return nil, fmt.Errorf("fetch battery %d: %w", batteryID, err)
	}
	if stored == nil {
		return nil, nil
	}

	s.cacheSet(ctx, key, stored, BatteryTTL)
	if stored.SystemID != nil {
		s.cacheSetRaw(ctx, systemBatteryKey(*stored.SystemID), strconv.FormatInt(stored.ID, 10), 0)
	}
	return stored, nil
}

func (s *Service) GetBatteryForSystem(ctx context.Context, systemID int64) (*domain.BatteryConfig, error) {
	if idStr, err := s.cache.Get(ctx, systemBatteryKey(systemID)); err == nil && idStr != "" {
		if batteryID, convErr := strconv.ParseInt(idStr, 10, 64); convErr == nil {
			return s.GetBattery(ctx, batteryID)
		}
	}

	stored, err := s.batteries.FindBySystemID(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("fetch battery for system %d: %w", systemID, err)
	}
	if stored == nil {
		return nil, nil
	}

	s.cacheSet(ctx, batteryKey(stored.ID), stored, BatteryTTL)
	s.cacheSetRaw(ctx, systemBatteryKey(systemID), strconv.FormatInt(stored.ID, 10), 0)
	return stored, nil
}

func (s *Service) GetDevices(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error) {
	key := deviceListKey(accountID)

	var snapshot domain.DeviceListSnapshot
	if s.cacheGet(ctx, key, "devices", &snapshot) {
		return snapshot.Devices, nil
	}

	devices, err := s.devices.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch devices for account %d: %w", accountID, err)
	}
	if len(devices) == 0 {
		return nil, nil
	}

	s.cacheSet(ctx, key, &domain.DeviceListSnapshot{
		AccountID: accountID,
		Devices:   devices,
		CachedAt:  time.Now().Unix(),
	}, DeviceListTTL)
	return devices, nil
}

// UpdateBatteryCharge persists the new state of charge and mirrors it
// into the cache in the same logical step. A store failure aborts before
// any cache write so the cached copy never runs ahead of the store.
func (s *Service) UpdateBatteryCharge(ctx context.Context, battery *domain.BatteryConfig, percentage float64) error {
	if err := s.batteries.UpdateChargePercentage(ctx, battery.ID, percentage); err != nil {
		return fmt.Errorf("persist battery %d charge: %w", battery.ID, err)
	}

	battery.CurrentChargePercentage = percentage
	s.cacheSet(ctx, batteryKey(battery.ID), battery, BatteryTTL)
	return nil
}

func (s *Service) SetDeviceState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
	if err := s.devices.UpdateState(ctx, deviceID, accountID, status); err != nil {
		return fmt.Errorf("persist device %d state: %w", deviceID, err)
	}

	// Coarse invalidation: one device mutation drops the whole list.
	s.cacheDelete(ctx, deviceListKey(accountID))
	s.publish(SubjectDevicesChanged, accountID)
	return nil
}

// ReplaceDeviceListCache rewrites the list snapshot, used after load
// shedding so the cached list matches the states just persisted.
func (s *Service) ReplaceDeviceListCache(ctx context.Context, accountID int64, systemID *int64, devices []domain.SwitchableDevice) error {
	return s.cache.Set(ctx, deviceListKey(accountID), mustJSON(&domain.DeviceListSnapshot{
		AccountID: accountID,
		SystemID:  systemID,
		Devices:   devices,
		CachedAt:  time.Now().Unix(),
	}), DeviceListTTL)
}

// AttachBattery stores the battery and links it to the system, converting
// the system to grid-tied-hybrid in the same write. The kind/battery
// pairing is validated before anything is persisted; a system that still
// references a battery rejects a second one.
func (s *Service) AttachBattery(ctx context.Context, systemID int64, battery *domain.BatteryConfig) error {
	system, err := s.systems.FindByID(ctx, systemID)
	if err != nil {
		return fmt.Errorf("fetch energy system %d: %w", systemID, err)
	}
	if system == nil {
		return domain.ErrSystemNotFound
	}
	if system.BatteryID != nil {
		return domain.ErrBatteryAlreadyAttached
	}

	next := *system
	next.SystemKind = domain.SystemKindGridTiedHybrid
	next.BatteryID = &battery.ID
	if err := next.Validate(); err != nil {
		return err
	}

	battery.SystemID = &systemID
	if err := s.batteries.Save(ctx, battery); err != nil {
		return fmt.Errorf("save battery: %w", err)
	}
	if err := s.systems.UpdateBatteryReference(ctx, systemID, &battery.ID, next.SystemKind); err != nil {
		return fmt.Errorf("link battery %d to system %d: %w", battery.ID, systemID, err)
	}

	s.cacheSet(ctx, batteryKey(battery.ID), battery, BatteryTTL)
	s.cacheSetRaw(ctx, systemBatteryKey(systemID), strconv.FormatInt(battery.ID, 10), 0)
	// The cached system snapshot predates the link and must not survive.
	s.cacheDelete(ctx, systemKey(systemID))

	s.publishForSystem(ctx, systemID)
	return nil
}

func (s *Service) DetachBattery(ctx context.Context, batteryID int64) error {
	battery, err := s.batteries.FindByID(ctx, batteryID)
	if err != nil {
		return fmt.Errorf("fetch battery %d: %w", batteryID, err)
	}
	if battery == nil {
		return domain.ErrBatteryNotFound
	}

	if err := s.batteries.Delete(ctx, batteryID); err != nil {
		return fmt.Errorf("delete battery %d: %w", batteryID, err)
	}

	keys := []string{batteryKey(batteryID)}
	if battery.SystemID != nil {
		// Without its battery the system is plain grid-tied again; the
		// demotion rides in the same write that clears the reference.
		if err := s.systems.UpdateBatteryReference(ctx, *battery.SystemID, nil, domain.SystemKindGridTied); err != nil {
			return fmt.Errorf("unlink battery %d: %w", batteryID, err)
		}
		// The system snapshot embedded the deleted battery id; both it
		// and the reverse index are now stale.
		keys = append(keys, systemBatteryKey(*battery.SystemID), systemKey(*battery.SystemID))
	}
	s.cacheDelete(ctx, keys...)

	if battery.SystemID != nil {
		s.publishForSystem(ctx, *battery.SystemID)
	}
	return nil
}

// InvalidateAccount drops every cache entry owned by the account. Called
// on logout/session end; the caches repopulate lazily on next access.
func (s *Service) InvalidateAccount(ctx context.Context, accountID int64) error {
	keys := []string{
		profileKey(accountID),
		deviceListKey(accountID),
		accountSystemKey(accountID),
	}

	if idStr, err := s.cache.Get(ctx, accountSystemKey(accountID)); err == nil && idStr != "" {
		if systemID, convErr := strconv.ParseInt(idStr, 10, 64); convErr == nil {
			keys = append(keys, systemKey(systemID), systemBatteryKey(systemID))
			if batStr, batErr := s.cache.Get(ctx, systemBatteryKey(systemID)); batErr == nil && batStr != "" {
				if batteryID, bConvErr := strconv.ParseInt(batStr, 10, 64); bConvErr == nil {
					keys = append(keys, batteryKey(batteryID))
				}
			}
		}
	}

	return s.cache.Delete(ctx, keys...)
}

// --- cache helpers ---

// cacheGet returns true only on a hit that unmarshals cleanly. Any cache
// failure is treated as a miss so the store remains the source of truth.
func (s *Service) cacheGet(ctx context.Context, key, entity string, out interface{}) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		telemetry.CacheMisses.WithLabelValues(entity).Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		telemetry.CacheMisses.WithLabelValues(entity).Inc()
		return false
	}
	telemetry.CacheHits.WithLabelValues(entity).Inc()
	return true
}

// cacheSet is best-effort: a failed write is logged and skipped.
func (s *Service) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, mustJSON(value), ttl); err != nil {
		s.log.Warn("Cache write skipped", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) cacheSetRaw(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn("Cache write skipped", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) cacheDelete(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Cache invalidation skipped", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Service) publish(subject string, accountID int64) {
	if s.mq == nil {
		return
	}
	data, _ := json.Marshal(ChangeEvent{AccountID: accountID})
	if err := s.mq.Publish(subject, data); err != nil {
		s.log.Warn("Mutation event not published", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) publishForSystem(ctx context.Context, systemID int64) {
	system, err := s.systems.FindByID(ctx, systemID)
	if err != nil || system == nil {
		return
	}
	s.publish(SubjectBatteryChanged, system.AccountID)
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
