package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"gorm.io/gorm"
)

// Document is a verified/uploaded client file (KYC) tied to a consignee via a
// polymorphic reference. It is a different concept from the per-shipment
// document checklist stored on the shipment row.
type Document struct {
	ID            int       `gorm:"primary_key" json:"id"`
	DocumentUrl   string    `json:"document_url"`
	DocumentType  string    `gorm:"size:50" json:"document_type"`
	Status        string    `gorm:"size:20;default:'draft'" json:"status"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   int       `json:"reference_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewDocument struct {
	DocumentUrl  string `json:"document_url"`
	DocumentType string `json:"document_type"`
}

// for create
func (input NewDocument) MapInput(referenceType string, referenceId int) (*Document, error) {
	if err := utils.CheckFileExistInGCS(input.DocumentUrl); err != nil {
		return nil, err
	}
	return &Document{
		DocumentUrl:   input.DocumentUrl,
		DocumentType:  input.DocumentType,
		Status:        DocumentStatusDraft,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}, nil
}

func (d *Document) Store(tx *gorm.DB, ctx context.Context) error {
	return tx.WithContext(ctx).Create(&d).Error
}

func (d *Document) Delete(tx *gorm.DB, ctx context.Context) error {
	if err := tx.WithContext(ctx).Delete(&d).Error; err != nil {
		return err
	}
	// delete actual file
	if objectKey := utils.ExtractObjectKeyFromURL(d.DocumentUrl); objectKey != "" {
		if err := utils.DeleteFileFromGCS(ctx, objectKey); err != nil {
			return err
		}
	}
	return nil
}

// RecordConsigneeDocument attaches an uploaded KYC file to a consignee owned
// by the session user.
func RecordConsigneeDocument(ctx context.Context, consigneeId int, input *NewDocument) (*Document, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	if err := utils.ValidateResourceId[Consignee](ctx, userId, consigneeId); err != nil {
		return nil, err
	}

	document, err := input.MapInput("consignees", consigneeId)
	if err != nil {
		return nil, err
	}
	if err := document.Store(db, ctx); err != nil {
		return nil, err
	}
	return document, nil
}

// DeleteConsigneeDocument removes a KYC document row and its stored object.
func DeleteConsigneeDocument(ctx context.Context, id int) error {
	db := config.GetDB()

	document, err := GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return document.Delete(db, ctx)
}

func GetDocument(ctx context.Context, id int) (*Document, error) {
	db := config.GetDB()
	found, err := utils.FetchSingleModel[Document](ctx, id)
	if err != nil {
		return nil, err
	}
	result := *found

	// Enforce ownership (fail closed) unless explicitly bypassed for admin/internal ops.
	if skip, ok := utils.GetSkipOwnerScopeFromContext(ctx); ok && skip {
		return &result, nil
	}
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return &result, nil
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	if result.ReferenceType != "consignees" || result.ReferenceID <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	// Validate the referenced consignee belongs to this user.
	var count int64
	if err := db.WithContext(ctx).
		Table("consignees").
		Where("user_id = ? AND id = ?", userId, result.ReferenceID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	return &result, nil
}

// RemoveFile deletes an uploaded object, but only when no database row still
// references it.
func RemoveFile(ctx context.Context, fullUrl string) (string, error) {
	var count int64
	db := config.GetDB()

	if err := db.Model(&Document{}).WithContext(ctx).Where("document_url = ?", fullUrl).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "", errors.New("cannot delete file associated with database")
	}

	objectName := utils.ExtractObjectKeyFromURL(fullUrl)
	if objectName == "" {
		return "", errors.New("invalid url")
	}
	if ok, err := utils.ObjectExistsInGCS(ctx, objectName); !ok || err != nil {
		return "", errors.New("object does not exist")
	}

	if err := utils.DeleteFileFromGCS(ctx, objectName); err != nil {
		return "", err
	}

	return fullUrl, nil
}
