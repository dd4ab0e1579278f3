package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmod "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homewatt/homewatt/internal/domain"
)

// Container-backed tests for the gorm repositories. Guarded behind
// HOMEWATT_INTEGRATION so `go test ./...` stays docker-free by default.
func testDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("HOMEWATT_INTEGRATION") == "" {
		t.Skip("set HOMEWATT_INTEGRATION=1 to run container-backed tests")
	}

	ctx := context.Background()
	container, err := pgmod.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgmod.WithDatabase("homewatt_test"),
		pgmod.WithUsername("homewatt"),
		pgmod.WithPassword("homewatt"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to build connection string: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	db, err := NewConnection(url, logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	err = db.AutoMigrate(
		&domain.AccountProfile{},
		&domain.EnergySystemConfig{},
		&domain.BatteryConfig{},
		&domain.SwitchableDevice{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}

func seedAccount(t *testing.T, db *gorm.DB, accountID int64) {
	t.Helper()
	profile := &domain.AccountProfile{
		ID:            accountID,
		Email:         fmt.Sprintf("node%d@example.com", accountID),
		Latitude:      -23.55,
		Longitude:     -46.63,
		HouseholdSize: 3,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
}

func TestProfileRepository_FindByID(t *testing.T) {
	db := testDatabase(t)
	logger, _ := zap.NewDevelopment()
	repo := NewProfileRepository(db, logger)
	ctx := context.Background()

	seedAccount(t, db, 1)

	profile, err := repo.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if profile == nil || profile.Email != "node1@example.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	missing, err := repo.FindByID(ctx, 99)
	if err != nil {
		t.Fatalf("a missing profile must not be a repository error, got %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for a missing profile, got %+v", missing)
	}
}

func TestEnergySystemRepository_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	logger, _ := zap.NewDevelopment()
	repo := NewEnergySystemRepository(db, logger)
	ctx := context.Background()

	seedAccount(t, db, 1)
	system := &domain.EnergySystemConfig{
		ID:                  10,
		AccountID:           1,
		TotalPanelWattageWp: 5000,
		InverterCapacityKW:  4.6,
		BaseLoadKW:          0.5,
		TiltDegrees:         30,
		AzimuthDegrees:      180,
		SystemKind:          domain.SystemKindGridTied,
	}
	if err := db.Create(system).Error; err != nil {
		t.Fatalf("failed to seed system: %v", err)
	}

	found, err := repo.FindByAccountID(ctx, 1)
	if err != nil {
		t.Fatalf("find by account: %v", err)
	}
	if found == nil || found.ID != 10 || found.BatteryID != nil {
		t.Errorf("unexpected system: %+v", found)
	}

	batteryID := int64(77)
	if err := repo.UpdateBatteryReference(ctx, 10, &batteryID, domain.SystemKindGridTiedHybrid); err != nil {
		t.Fatalf("attach reference: %v", err)
	}
	found, _ = repo.FindByID(ctx, 10)
	if found.BatteryID == nil || *found.BatteryID != 77 {
		t.Errorf("battery reference not persisted: %+v", found)
	}
	if found.SystemKind != domain.SystemKindGridTiedHybrid {
		t.Errorf("kind not updated with the reference: %q", found.SystemKind)
	}

	if err := repo.UpdateBatteryReference(ctx, 10, nil, domain.SystemKindGridTied); err != nil {
		t.Fatalf("detach reference: %v", err)
	}
	found, _ = repo.FindByID(ctx, 10)
	if found.BatteryID != nil || found.SystemKind != domain.SystemKindGridTied {
		t.Errorf("expected a plain grid-tied system after detach, got %+v", found)
	}

	none, err := repo.FindByAccountID(ctx, 99)
	if err != nil || none != nil {
		t.Errorf("a missing system must read as (nil, nil), got %+v err=%v", none, err)
	}
}

func TestBatteryRepository_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	logger, _ := zap.NewDevelopment()
	repo := NewBatteryRepository(db, logger)
	ctx := context.Background()

	systemID := int64(10)
	battery := &domain.BatteryConfig{
		ID:                      5,
		SystemID:                &systemID,
		ModelName:               "PowerCell 10",
		Manufacturer:            "Voltaic",
		CapacityKWh:             10,
		MaxChargeRateKW:         5,
		MaxDischargeRateKW:      5,
		Efficiency:              0.95,
		CurrentChargePercentage: 50,
	}
	if err := repo.Save(ctx, battery); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := repo.FindBySystemID(ctx, 10)
	if err != nil {
		t.Fatalf("find by system: %v", err)
	}
	if found == nil || found.ID != 5 {
		t.Fatalf("unexpected battery: %+v", found)
	}

	if err := repo.UpdateChargePercentage(ctx, 5, 62.5); err != nil {
		t.Fatalf("update charge: %v", err)
	}
	found, _ = repo.FindByID(ctx, 5)
	if found.CurrentChargePercentage != 62.5 {
		t.Errorf("charge = %v, want 62.5", found.CurrentChargePercentage)
	}

	if err := repo.UpdateChargePercentage(ctx, 99, 10); err != domain.ErrBatteryNotFound {
		t.Errorf("expected ErrBatteryNotFound for an unknown id, got %v", err)
	}

	if err := repo.Delete(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := repo.FindByID(ctx, 5)
	if err != nil || gone != nil {
		t.Errorf("expected the battery to be gone, got %+v err=%v", gone, err)
	}
}

func TestDeviceRepository_UpdateStateIsAccountScoped(t *testing.T) {
	db := testDatabase(t)
	logger, _ := zap.NewDevelopment()
	repo := NewDeviceRepository(db, logger)
	ctx := context.Background()

	seedAccount(t, db, 1)
	seedAccount(t, db, 2)
	devices := []domain.SwitchableDevice{
		{ID: 1, AccountID: 1, Name: "fridge", RatedPowerW: 150, Priority: domain.DevicePriorityCritical, Status: domain.DeviceStatusOn, IsSmart: true},
		{ID: 2, AccountID: 1, Name: "heater", RatedPowerW: 2000, Priority: domain.DevicePriorityNonEssential, Status: domain.DeviceStatusOn, IsSmart: true},
		{ID: 3, AccountID: 2, Name: "pump", RatedPowerW: 400, Priority: domain.DevicePriorityMedium, Status: domain.DeviceStatusOff, IsSmart: true},
	}
	if err := db.Create(&devices).Error; err != nil {
		t.Fatalf("failed to seed devices: %v", err)
	}

	list, err := repo.FindByAccountID(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("unexpected device list: %+v", list)
	}

	if err := repo.UpdateState(ctx, 2, 1, domain.DeviceStatusOff); err != nil {
		t.Fatalf("update state: %v", err)
	}
	list, _ = repo.FindByAccountID(ctx, 1)
	if list[1].Status != domain.DeviceStatusOff {
		t.Errorf("expected the heater to be off, got %s", list[1].Status)
	}

	// Device 3 belongs to account 2; account 1 must not be able to touch it.
	if err := repo.UpdateState(ctx, 3, 1, domain.DeviceStatusOn); err != domain.ErrDeviceNotFound {
		t.Errorf("expected ErrDeviceNotFound for a foreign device, got %v", err)
	}
}
