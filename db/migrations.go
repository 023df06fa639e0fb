package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateGenderEnum создает тип ENUM gender, если он не существует.
// Только для Postgres, в тестах на sqlite поле хранится как текст.
func CreateGenderEnum(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'gender') THEN
			CREATE TYPE gender AS ENUM ('male', 'female');
		END IF;
	END
	$$;
	`
	if err := database.Exec(createEnumSQL).Error; err != nil {
		return fmt.Errorf("failed to create enum gender: %w", err)
	}
	return nil
}
