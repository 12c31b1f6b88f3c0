package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

func models() []interface{} {
	return []interface{}{
		&model.Client{},
		&model.Member{},
		&model.BlockedIP{},
		&model.Project{},
		&model.ProjectRequirement{},
		&model.Bid{},
		&model.PackagePurchase{},
		&model.PackageAvailability{},
		&model.PackageSession{},
		&model.MemberAvailability{},
		&model.AvailabilityException{},
		&model.Solicitud{},
		&model.Asignacion{},
		&model.Avance{},
	}
}

// indexStatements run on every dialect.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_asignacion_live_member
		ON paquete_asignaciones (solicitud_id, member_id)
		WHERE status <> 'rechazado';`,
	`CREATE INDEX IF NOT EXISTS idx_package_sessions_purchase_date
		ON package_sessions (purchase_id, session_date);`,
	`CREATE INDEX IF NOT EXISTS idx_package_sessions_member_date
		ON package_sessions (member_id, session_date);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_availability_exception_day
		ON availability_exceptions (member_id, exception_date);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_blocked_ip_client
		ON blocked_ips (client_id, ip_address);`,
}

// postgresStatements back the budget invariants with table constraints.
var postgresStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_package_purchases_consumed') THEN
			ALTER TABLE package_purchases
				ADD CONSTRAINT chk_package_purchases_consumed CHECK (consumed_hours >= 0 AND consumed_hours <= total_hours);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_paquete_asignaciones_consumed') THEN
			ALTER TABLE paquete_asignaciones
				ADD CONSTRAINT chk_paquete_asignaciones_consumed CHECK (consumed_hours >= 0 AND consumed_hours <= assigned_hours);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_package_sessions_interval') THEN
			ALTER TABLE package_sessions
				ADD CONSTRAINT chk_package_sessions_interval CHECK (start_time < end_time);
		END IF;
	END
	$$;`,
}

// Migrate creates or upgrades the schema.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	statements := indexStatements
	if database.Dialector.Name() == "postgres" {
		statements = append(append([]string{}, indexStatements...), postgresStatements...)
	}
	for i, stmt := range statements {
		if err := database.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
