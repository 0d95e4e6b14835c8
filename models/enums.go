package models

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleBroker UserRole = "B"
)

type ClientType string

const (
	ClientTypeConsignee ClientType = "consignee"
	ClientTypeExporter  ClientType = "exporter"
)

// Freight/transaction type codes. IMS is a sea import entry; everything else
// is classified as air (IAS etc.).
const (
	TransactionTypeSeaImport = "IMS"
	TransactionTypeAirImport = "IAS"
)

const (
	FreightModeSea = "sea"
	FreightModeAir = "air"
)

// FreightModeFromCode derives the sea/air classification used by the list
// projection and by bl_number vs awb_number field selection.
func FreightModeFromCode(shipmentType string) string {
	if shipmentType == TransactionTypeSeaImport {
		return FreightModeSea
	}
	return FreightModeAir
}

// ShipmentStage is a recognized workflow stage. The legacy system stored the
// status as free text with no validation; transitions are now checked against
// an ordered pipeline.
type ShipmentStage string

const (
	StageClientDetails      ShipmentStage = "Client Details"
	StageShipmentDetails    ShipmentStage = "Shipment Details"
	StageDocumentCollection ShipmentStage = "Document Collection"
	StageAssessment         ShipmentStage = "Assessment"
	StageCustomsClearance   ShipmentStage = "Customs Clearance"
	StageDelivery           ShipmentStage = "Delivery"
	StageCompleted          ShipmentStage = "Completed"
)

var stageOrder = map[ShipmentStage]int{
	StageClientDetails:      0,
	StageShipmentDetails:    1,
	StageDocumentCollection: 2,
	StageAssessment:         3,
	StageCustomsClearance:   4,
	StageDelivery:           5,
	StageCompleted:          6,
}

func (s ShipmentStage) Recognized() bool {
	_, ok := stageOrder[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// The pipeline moves forward only; re-asserting the current stage is allowed
// (idempotent status updates), Completed is terminal.
func (s ShipmentStage) CanTransitionTo(next ShipmentStage) bool {
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	if s == StageCompleted {
		return next == StageCompleted
	}
	return to >= from
}

// Checklist document statuses.
const (
	DocumentStatusPending  = "pending"
	DocumentStatusDraft    = "draft"
	DocumentStatusVerified = "verified"
)
