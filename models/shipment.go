package models

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"gorm.io/gorm"
)

const ModuleNameShipment = "Shipment"

// Shipment is one brokerage job. Client links are optional foreign keys;
// the *Data columns hold JSON text blobs that are decoded through the typed
// records in shipmentBlob.go. A shipment renders from its snapshots even when
// no client rows are linked.
type Shipment struct {
	ID              int        `gorm:"primary_key" json:"id"`
	UserId          int        `gorm:"index;not null" json:"user_id"`
	ReferenceNumber string     `gorm:"size:20;uniqueIndex" json:"reference_number"`
	ShipmentType    string     `gorm:"size:10;not null" json:"shipment_type"`
	Status          string     `gorm:"size:50" json:"status"`
	ConsigneeId     *int       `json:"consignee_id"`
	Consignee       *Consignee `json:"consignee"`
	ExporterId      *int       `json:"exporter_id"`
	Exporter        *Exporter  `json:"exporter"`
	IsLocked        *bool      `gorm:"default:false" json:"is_locked"`
	CompletionDate  *time.Time `json:"completion_date"`

	ConsigneeData        string `gorm:"type:text" json:"-"`
	ExporterData         string `gorm:"type:text" json:"-"`
	ShipmentDetailsData  string `gorm:"type:text" json:"-"`
	DocumentsData        string `gorm:"type:text" json:"-"`
	TimelineData         string `gorm:"type:text" json:"-"`
	NotesData            string `gorm:"type:text" json:"-"`
	ComputationsData     string `gorm:"type:text" json:"-"`
	CargoData            string `gorm:"type:text" json:"-"`
	StatementOfFactsData string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewShipment is the intake form payload.
type NewShipment struct {
	ShipmentType    string          `json:"shipment_type" binding:"required"`
	Consignee       *NewConsignee   `json:"consignee"`
	Exporter        *NewExporter    `json:"exporter"`
	ShipmentDetails ShipmentDetails `json:"shipment_details"`
}

// ShipmentPatch carries the edit-page payload. Only sections present in the
// request are touched; a present section replaces its blob wholesale.
type ShipmentPatch struct {
	Consignee        *NewConsignee           `json:"consignee"`
	Exporter         *NewExporter            `json:"exporter"`
	ShipmentDetails  *ShipmentDetails        `json:"shipment_details"`
	Documents        *[]ChecklistDocument    `json:"documents"`
	Timeline         *[]TimelineEvent        `json:"timeline"`
	Notes            *[]ShipmentNote         `json:"notes"`
	Computations     *Computations           `json:"computations"`
	Cargo            *[]CargoItem            `json:"cargo"`
	StatementOfFacts *[]StatementOfFactEntry `json:"statement_of_facts"`
}

// generateReferenceNumber builds CLEX-<type><2-digit-year>-<4-digit-random>,
// e.g. CLEX-IMS26-0481. Collisions are left to the unique index; at the
// volumes a brokerage office handles they are rare enough that a retry by the
// operator is acceptable.
func generateReferenceNumber(shipmentType string) string {
	return fmt.Sprintf("CLEX-%s%02d-%04d", shipmentType, time.Now().Year()%100, rand.Intn(10000))
}

// defaultChecklist seeds the per-shipment document checklist. The transport
// document differs by freight mode.
func defaultChecklist(shipmentType string) []ChecklistDocument {
	transportDoc := "Airway Bill"
	if FreightModeFromCode(shipmentType) == FreightModeSea {
		transportDoc = "Bill of Lading"
	}
	names := []string{
		transportDoc,
		"Commercial Invoice",
		"Packing List",
		"Import Permit",
		"Certificate of Origin",
	}
	checklist := make([]ChecklistDocument, 0, len(names))
	for _, name := range names {
		checklist = append(checklist, ChecklistDocument{
			Name:   name,
			Status: DocumentStatusPending,
			Files:  []string{},
		})
	}
	return checklist
}

// applyUploadToChecklist appends fileURL to the checklist entry whose name
// equals documentType and flips that entry to draft. Unmatched types leave the
// checklist unchanged; the second return value reports whether a match was
// found.
func applyUploadToChecklist(checklist []ChecklistDocument, documentType string, fileURL string) ([]ChecklistDocument, bool) {
	for i := range checklist {
		if checklist[i].Name != documentType {
			continue
		}
		checklist[i].Files = append(checklist[i].Files, fileURL)
		if checklist[i].Status == DocumentStatusPending {
			checklist[i].Status = DocumentStatusDraft
		}
		return checklist, true
	}
	return checklist, false
}

func (s *Shipment) decodeTimeline() ([]TimelineEvent, error) {
	return decodeBlob[[]TimelineEvent](s.TimelineData)
}

func (s *Shipment) decodeChecklist() ([]ChecklistDocument, error) {
	return decodeBlob[[]ChecklistDocument](s.DocumentsData)
}

func (s *Shipment) decodeDetails() (ShipmentDetails, error) {
	return decodeBlob[ShipmentDetails](s.ShipmentDetailsData)
}

// applyPatch mutates the row in memory. No database access; validation and
// encoding errors abort with nothing half-applied because the caller only
// saves on nil error.
func (s *Shipment) applyPatch(patch *ShipmentPatch) error {
	if patch.ShipmentDetails != nil {
		data, err := encodeBlob(*patch.ShipmentDetails)
		if err != nil {
			return err
		}
		s.ShipmentDetailsData = data
	}
	if patch.Documents != nil {
		if err := validateChecklist(*patch.Documents); err != nil {
			return err
		}
		data, err := encodeBlob(*patch.Documents)
		if err != nil {
			return err
		}
		s.DocumentsData = data
	}
	if patch.Timeline != nil {
		if err := validateTimeline(*patch.Timeline); err != nil {
			return err
		}
		data, err := encodeBlob(*patch.Timeline)
		if err != nil {
			return err
		}
		s.TimelineData = data
	}
	if patch.Notes != nil {
		data, err := encodeBlob(*patch.Notes)
		if err != nil {
			return err
		}
		s.NotesData = data
	}
	if patch.Computations != nil {
		data, err := encodeBlob(*patch.Computations)
		if err != nil {
			return err
		}
		s.ComputationsData = data
	}
	if patch.Cargo != nil {
		if err := validateCargo(*patch.Cargo); err != nil {
			return err
		}
		data, err := encodeBlob(*patch.Cargo)
		if err != nil {
			return err
		}
		s.CargoData = data
	}
	if patch.StatementOfFacts != nil {
		if err := validateStatementOfFacts(*patch.StatementOfFacts); err != nil {
			return err
		}
		data, err := encodeBlob(*patch.StatementOfFacts)
		if err != nil {
			return err
		}
		s.StatementOfFactsData = data
	}
	return nil
}

// CreateShipment persists the intake form in one transaction: resolve or
// create the clients, snapshot them into the blob columns, insert the
// shipment at the first stage with a seeded timeline.
func CreateShipment(ctx context.Context, input *NewShipment) (result *Shipment, err error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	if input.ShipmentType != TransactionTypeSeaImport && input.ShipmentType != TransactionTypeAirImport {
		return nil, errors.New("unknown shipment type")
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			config.LogError(logger, ModuleNameShipment, "CreateShipment", "panic recovered", r, utils.ErrorInternalPanic)
			result, err = nil, utils.ErrorInternalPanic
		}
	}()
	if err := tx.Error; err != nil {
		return nil, err
	}

	consigneeId, err := findOrCreateConsignee(tx, ctx, input.Consignee, input.ShipmentDetails, userId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	exporterId, err := findOrCreateExporter(tx, ctx, input.Exporter, userId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	shipment := Shipment{
		UserId:          userId,
		ReferenceNumber: generateReferenceNumber(input.ShipmentType),
		ShipmentType:    input.ShipmentType,
		Status:          string(StageClientDetails),
		IsLocked:        utils.NewFalse(),
	}
	if consigneeId > 0 {
		shipment.ConsigneeId = &consigneeId
	}
	if exporterId > 0 {
		shipment.ExporterId = &exporterId
	}

	// snapshot whatever the form carried, linked or not
	if input.Consignee != nil {
		mapped := input.Consignee.mapInput(userId)
		snap := mapped.snapshot()
		snap.Id = consigneeId
		if shipment.ConsigneeData, err = encodeBlob(snap); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if input.Exporter != nil {
		mapped := input.Exporter.mapInput(userId)
		snap := mapped.snapshot()
		snap.Id = exporterId
		if shipment.ExporterData, err = encodeBlob(snap); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if shipment.ShipmentDetailsData, err = encodeBlob(input.ShipmentDetails); err != nil {
		tx.Rollback()
		return nil, err
	}
	if shipment.DocumentsData, err = encodeBlob(defaultChecklist(input.ShipmentType)); err != nil {
		tx.Rollback()
		return nil, err
	}
	timeline := []TimelineEvent{{
		Status:      string(StageClientDetails),
		Timestamp:   time.Now(),
		Description: "Shipment created",
	}}
	if shipment.TimelineData, err = encodeBlob(timeline); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Create(&shipment).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, ModuleNameShipment, "CreateShipment", "insert failed", input, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &shipment, nil
}

// GetShipment returns the row with its linked clients, or nil when it does
// not exist or belongs to another user.
func GetShipment(ctx context.Context, id int) (*Shipment, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}
	shipment, err := utils.FetchModel[Shipment](ctx, userId, id, "Consignee.Documents", "Exporter")
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return shipment, nil
}

// GetShipments lists the session user's shipments newest first.
func GetShipments(ctx context.Context) ([]*ShipmentSummary, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	var shipments []*Shipment
	if err := db.WithContext(ctx).
		Preload("Consignee").
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&shipments).Error; err != nil {
		return nil, err
	}

	summaries := make([]*ShipmentSummary, 0, len(shipments))
	for _, shipment := range shipments {
		summaries = append(summaries, shipment.summarize())
	}
	return summaries, nil
}

// UpdateShipmentStatus moves the shipment to a new stage and appends the
// event to the timeline, preserving order. Returns false on any failure,
// including an unrecognized stage or a backward transition.
func UpdateShipmentStatus(ctx context.Context, id int, status string, event *TimelineEvent) bool {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return false
	}

	shipment, err := utils.FetchModel[Shipment](ctx, userId, id)
	if err != nil {
		return false
	}

	next := ShipmentStage(status)
	if !next.Recognized() {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentStatus", "unrecognized stage", status, errors.New("unrecognized stage"))
		return false
	}
	if !ShipmentStage(shipment.Status).CanTransitionTo(next) {
		return false
	}

	timeline, err := shipment.decodeTimeline()
	if err != nil {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentStatus", "corrupt timeline blob", shipment.ID, err)
		return false
	}
	// the timeline grows only when the caller supplies an event; a bare
	// status change leaves it untouched
	if event != nil {
		appended := TimelineEvent{Status: status, Timestamp: time.Now(), Description: event.Description}
		if !event.Timestamp.IsZero() {
			appended.Timestamp = event.Timestamp
		}
		timeline = append(timeline, appended)
		if err := validateTimeline(timeline); err != nil {
			return false
		}
	}

	shipment.Status = status
	if next == StageCompleted && shipment.CompletionDate == nil {
		now := time.Now()
		shipment.CompletionDate = &now
	}
	if shipment.TimelineData, err = encodeBlob(timeline); err != nil {
		return false
	}

	if err := db.WithContext(ctx).Save(shipment).Error; err != nil {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentStatus", "save failed", shipment.ID, err)
		return false
	}
	if err := utils.InvalidateShipmentViewCache(userId, shipment.ID); err != nil {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentStatus", "cache invalidation failed", shipment.ID, err)
	}
	return true
}

// UpdateShipmentDetails applies an edit-page patch. Sections absent from the
// patch keep their stored value; a present section replaces its blob.
// Client sub-objects with an Id relink the shipment to that saved client and
// refresh the snapshot.
func UpdateShipmentDetails(ctx context.Context, id int, patch *ShipmentPatch) (*ShipmentView, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	shipment, err := utils.FetchModel[Shipment](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if shipment.IsLocked != nil && *shipment.IsLocked {
		return nil, errors.New("shipment is locked")
	}

	if err := shipment.applyPatch(patch); err != nil {
		return nil, err
	}

	if patch.Consignee != nil {
		if patch.Consignee.Id > 0 {
			consignee, err := utils.FetchModel[Consignee](ctx, userId, patch.Consignee.Id)
			if err != nil {
				return nil, err
			}
			shipment.ConsigneeId = &consignee.ID
			if shipment.ConsigneeData, err = encodeBlob(consignee.snapshot()); err != nil {
				return nil, err
			}
		} else {
			mapped := patch.Consignee.mapInput(userId)
			snap := mapped.snapshot()
			if shipment.ConsigneeData, err = encodeBlob(snap); err != nil {
				return nil, err
			}
		}
	}
	if patch.Exporter != nil {
		if patch.Exporter.Id > 0 {
			exporter, err := utils.FetchModel[Exporter](ctx, userId, patch.Exporter.Id)
			if err != nil {
				return nil, err
			}
			shipment.ExporterId = &exporter.ID
			if shipment.ExporterData, err = encodeBlob(exporter.snapshot()); err != nil {
				return nil, err
			}
		} else {
			mapped := patch.Exporter.mapInput(userId)
			snap := mapped.snapshot()
			if shipment.ExporterData, err = encodeBlob(snap); err != nil {
				return nil, err
			}
		}
	}

	if err := db.WithContext(ctx).Save(shipment).Error; err != nil {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentDetails", "save failed", shipment.ID, err)
		return nil, err
	}
	if err := utils.InvalidateShipmentViewCache(userId, shipment.ID); err != nil {
		config.LogError(logger, ModuleNameShipment, "UpdateShipmentDetails", "cache invalidation failed", shipment.ID, err)
	}

	// reload relations for the projection
	fresh, err := utils.FetchModel[Shipment](ctx, userId, shipment.ID, "Consignee.Documents", "Exporter")
	if err != nil {
		return nil, err
	}
	return ProjectShipment(fresh)
}

// LinkClientToShipment attaches a saved client to an existing shipment and
// refreshes the stored snapshot from the current client row.
func LinkClientToShipment(ctx context.Context, shipmentId int, clientId int, clientType ClientType) (*Shipment, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthorized
	}

	shipment, err := utils.FetchModel[Shipment](ctx, userId, shipmentId)
	if err != nil {
		return nil, err
	}

	switch clientType {
	case ClientTypeConsignee:
		consignee, err := utils.FetchModel[Consignee](ctx, userId, clientId)
		if err != nil {
			return nil, err
		}
		shipment.ConsigneeId = &consignee.ID
		if shipment.ConsigneeData, err = encodeBlob(consignee.snapshot()); err != nil {
			return nil, err
		}
	case ClientTypeExporter:
		exporter, err := utils.FetchModel[Exporter](ctx, userId, clientId)
		if err != nil {
			return nil, err
		}
		shipment.ExporterId = &exporter.ID
		if shipment.ExporterData, err = encodeBlob(exporter.snapshot()); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unknown client type")
	}

	if err := db.WithContext(ctx).Save(shipment).Error; err != nil {
		return nil, err
	}
	if err := utils.InvalidateShipmentViewCache(userId, shipment.ID); err != nil {
		config.LogError(config.GetLogger(), ModuleNameShipment, "LinkClientToShipment", "cache invalidation failed", shipment.ID, err)
	}
	return shipment, nil
}

// RecordShipmentUpload files an uploaded document against the shipment's
// checklist. An upload whose type matches no checklist entry is accepted and
// stored nowhere; the file stays in the bucket and the checklist is
// untouched. Returns the checklist status of the matched entry, or "" when
// nothing matched.
func RecordShipmentUpload(ctx context.Context, shipmentId int, documentType string, fileURL string) (string, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return "", utils.ErrorUnauthorized
	}

	shipment, err := utils.FetchModel[Shipment](ctx, userId, shipmentId)
	if err != nil {
		return "", err
	}

	checklist, err := shipment.decodeChecklist()
	if err != nil {
		config.LogError(logger, ModuleNameShipment, "RecordShipmentUpload", "corrupt checklist blob", shipment.ID, err)
		return "", err
	}

	updated, matched := applyUploadToChecklist(checklist, documentType, fileURL)
	if !matched {
		logger.WithField("document_type", documentType).
			WithField("shipment_id", shipment.ID).
			Warn("upload did not match any checklist entry")
		return "", nil
	}

	if shipment.DocumentsData, err = encodeBlob(updated); err != nil {
		return "", err
	}
	if err := db.WithContext(ctx).Save(shipment).Error; err != nil {
		return "", err
	}
	if err := utils.InvalidateShipmentViewCache(userId, shipment.ID); err != nil {
		config.LogError(logger, ModuleNameShipment, "RecordShipmentUpload", "cache invalidation failed", shipment.ID, err)
	}

	for _, doc := range updated {
		if doc.Name == documentType {
			return doc.Status, nil
		}
	}
	return DocumentStatusDraft, nil
}
