package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateSexEnum создает тип ENUM sex, если он не существует
func CreateSexEnum(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'sex') THEN
			CREATE TYPE sex AS ENUM ('male', 'female');
		END IF;
	END
	$$;
	`
	if err := db.Exec(createEnumSQL).Error; err != nil {
		return fmt.Errorf("failed to create enum sex: %w", err)
	}
	return nil
}
