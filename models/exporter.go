package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"gorm.io/gorm"
)

// Exporter is the origin-side client of a shipment.
type Exporter struct {
	ID              int       `gorm:"primary_key" json:"id"`
	UserId          int       `gorm:"index;not null" json:"user_id"`
	Name            string    `gorm:"size:100;not null" json:"name" binding:"required"`
	BusinessAddress string    `gorm:"type:text" json:"business_address"`
	ContactPerson   string    `gorm:"size:100" json:"contact_person"`
	ContactNumber   string    `gorm:"size:20" json:"contact_number"`
	Email           string    `gorm:"size:100" json:"email"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExporter struct {
	Id              int    `json:"id"`
	Name            string `json:"name"`
	BusinessAddress string `json:"business_address"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

type ExporterSummary struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	BusinessAddress string `json:"business_address"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

func (input *NewExporter) validate(ctx context.Context, userId int, id int) error {
	if input.Name == "" {
		return errors.New("exporter name is required")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	return nil
}

func (input *NewExporter) mapInput(userId int) Exporter {
	return Exporter{
		UserId:          userId,
		Name:            input.Name,
		BusinessAddress: input.BusinessAddress,
		ContactPerson:   input.ContactPerson,
		ContactNumber:   input.ContactNumber,
		Email:           input.Email,
	}
}

func (e *Exporter) snapshot() ClientSnapshot {
	return ClientSnapshot{
		Id:              e.ID,
		Name:            e.Name,
		BusinessAddress: e.BusinessAddress,
		ContactPerson:   e.ContactPerson,
		ContactNumber:   e.ContactNumber,
		Email:           e.Email,
	}
}

// findOrCreateExporter resolves the exporter for a shipment inside the
// caller's transaction. Match requires name AND address both equal (unlike
// the consignee's TIN-or-name match). Returns 0 when no input was supplied.
func findOrCreateExporter(tx *gorm.DB, ctx context.Context, input *NewExporter, userId int) (int, error) {
	if input == nil || input.Name == "" {
		return 0, nil
	}

	var existing Exporter
	err := tx.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("name = ? AND business_address = ?", input.Name, input.BusinessAddress).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	exporter := input.mapInput(userId)
	if err := tx.WithContext(ctx).Create(&exporter).Error; err != nil {
		return 0, err
	}
	return exporter.ID, nil
}

// CreateExporter creates a client outside the shipment flow.
func CreateExporter(ctx context.Context, input *NewExporter) (*Exporter, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	if err := input.validate(ctx, userId, 0); err != nil {
		return nil, err
	}

	exporter := input.mapInput(userId)
	if err := db.WithContext(ctx).Create(&exporter).Error; err != nil {
		return nil, err
	}
	return &exporter, nil
}

// GetSavedExporters lists the owner's exporters newest-first.
func GetSavedExporters(ctx context.Context) ([]*ExporterSummary, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	var results []*ExporterSummary
	err := db.WithContext(ctx).Model(&Exporter{}).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetExporter(ctx context.Context, id int) (*Exporter, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	return utils.FetchModel[Exporter](ctx, userId, id)
}
