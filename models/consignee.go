package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"gorm.io/gorm"
)

// Consignee is the destination-side client of a shipment. Rows are scoped per
// owning user; KYC documents attach polymorphically.
type Consignee struct {
	ID              int         `gorm:"primary_key" json:"id"`
	UserId          int         `gorm:"index;not null" json:"user_id"`
	Name            string      `gorm:"size:100;not null" json:"name" binding:"required"`
	RegisteredName  string      `gorm:"size:150" json:"registered_name"`
	BusinessAddress string      `gorm:"type:text" json:"business_address"`
	Tin             string      `gorm:"size:20;index" json:"tin"`
	Brn             string      `gorm:"size:20" json:"brn"`
	ContactPerson   string      `gorm:"size:100" json:"contact_person"`
	ContactNumber   string      `gorm:"size:20" json:"contact_number"`
	Email           string      `gorm:"size:100" json:"email"`
	Documents       []*Document `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewConsignee struct {
	Id              int    `json:"id"`
	Name            string `json:"name"`
	RegisteredName  string `json:"registered_name"`
	BusinessAddress string `json:"business_address"`
	Tin             string `json:"tin"`
	Brn             string `json:"brn"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

// ConsigneeSummary is the saved-clients picker projection.
type ConsigneeSummary struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	BusinessAddress string `json:"business_address"`
	Tin             string `json:"tin"`
	Brn             string `json:"brn"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

func (input *NewConsignee) validate(ctx context.Context, userId int, id int) error {
	if input.Name == "" {
		return errors.New("consignee name is required")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.ContactNumber != "" {
		if err := utils.ValidatePhoneNumber(input.ContactNumber, utils.CountryCode); err != nil {
			return errors.New("invalid contact number")
		}
	}
	// matching is a heuristic, but standalone creates still keep names unique
	if err := utils.ValidateUnique[Consignee](ctx, userId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func (input *NewConsignee) mapInput(userId int) Consignee {
	return Consignee{
		UserId:          userId,
		Name:            input.Name,
		RegisteredName:  input.RegisteredName,
		BusinessAddress: input.BusinessAddress,
		Tin:             input.Tin,
		Brn:             input.Brn,
		ContactPerson:   input.ContactPerson,
		ContactNumber:   input.ContactNumber,
		Email:           input.Email,
	}
}

func (c *Consignee) snapshot() ClientSnapshot {
	return ClientSnapshot{
		Id:              c.ID,
		Name:            c.Name,
		RegisteredName:  c.RegisteredName,
		BusinessAddress: c.BusinessAddress,
		Tin:             c.Tin,
		Brn:             c.Brn,
		ContactPerson:   c.ContactPerson,
		ContactNumber:   c.ContactNumber,
		Email:           c.Email,
	}
}

// findOrCreateConsignee resolves the consignee for a shipment inside the
// caller's transaction. Matching is TIN OR name within the owner's scope
// (exporters match name AND address; the asymmetry is intentional product
// behavior, do not "fix" it here). Returns 0 when no input was supplied.
// Contact fields fall back to the shipment-details sub-object.
func findOrCreateConsignee(tx *gorm.DB, ctx context.Context, input *NewConsignee, details ShipmentDetails, userId int) (int, error) {
	if input == nil || (input.Name == "" && input.Tin == "") {
		return 0, nil
	}

	var existing Consignee
	q := tx.WithContext(ctx).Where("user_id = ?", userId)
	if input.Tin != "" {
		q = q.Where("tin = ? OR name = ?", input.Tin, input.Name)
	} else {
		q = q.Where("name = ?", input.Name)
	}
	err := q.First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	consignee := input.mapInput(userId)
	if consignee.ContactPerson == "" {
		consignee.ContactPerson = details["contact_person"]
	}
	if consignee.ContactNumber == "" {
		consignee.ContactNumber = details["contact_number"]
	}
	if err := tx.WithContext(ctx).Create(&consignee).Error; err != nil {
		return 0, err
	}
	return consignee.ID, nil
}

// CreateConsignee creates a client outside the shipment flow
// (client-management UI).
func CreateConsignee(ctx context.Context, input *NewConsignee) (*Consignee, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	if err := input.validate(ctx, userId, 0); err != nil {
		return nil, err
	}

	consignee := input.mapInput(userId)
	if err := db.WithContext(ctx).Create(&consignee).Error; err != nil {
		return nil, err
	}
	return &consignee, nil
}

// GetSavedConsignees lists the owner's consignees newest-first for the
// saved-clients picker.
func GetSavedConsignees(ctx context.Context) ([]*ConsigneeSummary, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	var results []*ConsigneeSummary
	err := db.WithContext(ctx).Model(&Consignee{}).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetConsignee(ctx context.Context, id int) (*Consignee, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	return utils.FetchModel[Consignee](ctx, userId, id, "Documents")
}
