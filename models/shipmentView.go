package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientSource says where a view's client block came from.
const (
	ClientSourceLinked   = "linked"
	ClientSourceSnapshot = "snapshot"
	ClientSourceNone     = "none"
)

// ConsigneeView is the consignee block of the shipment detail page. When the
// relational link resolves it carries the live row (including KYC documents);
// otherwise it falls back to the snapshot captured at intake.
type ConsigneeView struct {
	Source          string      `json:"source"`
	Id              int         `json:"id,omitempty"`
	Name            string      `json:"name"`
	RegisteredName  string      `json:"registered_name,omitempty"`
	BusinessAddress string      `json:"business_address"`
	Tin             string      `json:"tin,omitempty"`
	Brn             string      `json:"brn,omitempty"`
	ContactPerson   string      `json:"contact_person"`
	ContactNumber   string      `json:"contact_number"`
	Email           string      `json:"email"`
	Documents       []*Document `json:"documents,omitempty"`
}

type ExporterView struct {
	Source          string `json:"source"`
	Id              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	BusinessAddress string `json:"business_address"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

// ShipmentView is the full detail-page projection with every blob decoded.
type ShipmentView struct {
	Id               int                        `json:"id"`
	ReferenceNumber  string                     `json:"reference_number"`
	ShipmentType     string                     `json:"shipment_type"`
	FreightMode      string                     `json:"freight_mode"`
	Status           string                     `json:"status"`
	IsLocked         bool                       `json:"is_locked"`
	CompletionDate   *time.Time                 `json:"completion_date,omitempty"`
	Consignee        *ConsigneeView             `json:"consignee"`
	Exporter         *ExporterView              `json:"exporter"`
	ShipmentDetails  ShipmentDetails            `json:"shipment_details"`
	Documents        []ChecklistDocument        `json:"documents"`
	Timeline         []TimelineEvent            `json:"timeline"`
	Notes            []ShipmentNote             `json:"notes"`
	Computations     map[string]decimal.Decimal `json:"computations"`
	Cargo            []CargoItem                `json:"cargo"`
	StatementOfFacts []StatementOfFactEntry     `json:"statement_of_facts"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// ShipmentSummary is the list-page row.
type ShipmentSummary struct {
	Id              int       `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	ConsigneeName   string    `json:"consignee_name"`
	TrackingNumber  string    `json:"tracking_number"`
	CreatedAt       time.Time `json:"created_at"`
}

func projectConsignee(s *Shipment) (*ConsigneeView, error) {
	if s.Consignee != nil {
		return &ConsigneeView{
			Source:          ClientSourceLinked,
			Id:              s.Consignee.ID,
			Name:            s.Consignee.Name,
			RegisteredName:  s.Consignee.RegisteredName,
			BusinessAddress: s.Consignee.BusinessAddress,
			Tin:             s.Consignee.Tin,
			Brn:             s.Consignee.Brn,
			ContactPerson:   s.Consignee.ContactPerson,
			ContactNumber:   s.Consignee.ContactNumber,
			Email:           s.Consignee.Email,
			Documents:       s.Consignee.Documents,
		}, nil
	}
	if s.ConsigneeData != "" {
		snap, err := decodeBlob[ClientSnapshot](s.ConsigneeData)
		if err != nil {
			return nil, err
		}
		return &ConsigneeView{
			Source:          ClientSourceSnapshot,
			Id:              snap.Id,
			Name:            snap.Name,
			RegisteredName:  snap.RegisteredName,
			BusinessAddress: snap.BusinessAddress,
			Tin:             snap.Tin,
			Brn:             snap.Brn,
			ContactPerson:   snap.ContactPerson,
			ContactNumber:   snap.ContactNumber,
			Email:           snap.Email,
		}, nil
	}
	return &ConsigneeView{Source: ClientSourceNone}, nil
}

func projectExporter(s *Shipment) (*ExporterView, error) {
	if s.Exporter != nil {
		return &ExporterView{
			Source:          ClientSourceLinked,
			Id:              s.Exporter.ID,
			Name:            s.Exporter.Name,
			BusinessAddress: s.Exporter.BusinessAddress,
			ContactPerson:   s.Exporter.ContactPerson,
			ContactNumber:   s.Exporter.ContactNumber,
			Email:           s.Exporter.Email,
		}, nil
	}
	if s.ExporterData != "" {
		snap, err := decodeBlob[ClientSnapshot](s.ExporterData)
		if err != nil {
			return nil, err
		}
		return &ExporterView{
			Source:          ClientSourceSnapshot,
			Id:              snap.Id,
			Name:            snap.Name,
			BusinessAddress: snap.BusinessAddress,
			ContactPerson:   snap.ContactPerson,
			ContactNumber:   snap.ContactNumber,
			Email:           snap.Email,
		}, nil
	}
	return &ExporterView{Source: ClientSourceNone}, nil
}

// ProjectShipment decodes the row into the detail-page view. Each client
// block resolves independently: a shipment can have a linked consignee and a
// snapshot-only exporter at the same time.
func ProjectShipment(s *Shipment) (*ShipmentView, error) {
	consignee, err := projectConsignee(s)
	if err != nil {
		return nil, err
	}
	exporter, err := projectExporter(s)
	if err != nil {
		return nil, err
	}
	details, err := s.decodeDetails()
	if err != nil {
		return nil, err
	}
	documents, err := s.decodeChecklist()
	if err != nil {
		return nil, err
	}
	timeline, err := s.decodeTimeline()
	if err != nil {
		return nil, err
	}
	notes, err := decodeBlob[[]ShipmentNote](s.NotesData)
	if err != nil {
		return nil, err
	}
	computations, err := decodeBlob[Computations](s.ComputationsData)
	if err != nil {
		return nil, err
	}
	cargo, err := decodeBlob[[]CargoItem](s.CargoData)
	if err != nil {
		return nil, err
	}
	statementOfFacts, err := decodeBlob[[]StatementOfFactEntry](s.StatementOfFactsData)
	if err != nil {
		return nil, err
	}

	view := &ShipmentView{
		Id:               s.ID,
		ReferenceNumber:  s.ReferenceNumber,
		ShipmentType:     s.ShipmentType,
		FreightMode:      FreightModeFromCode(s.ShipmentType),
		Status:           s.Status,
		CompletionDate:   s.CompletionDate,
		Consignee:        consignee,
		Exporter:         exporter,
		ShipmentDetails:  details,
		Documents:        documents,
		Timeline:         timeline,
		Notes:            notes,
		Computations:     computations,
		Cargo:            cargo,
		StatementOfFacts: statementOfFacts,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.IsLocked != nil {
		view.IsLocked = *s.IsLocked
	}
	return view, nil
}

// summarize builds the list-page row. The tracking number is the transport
// document number from the details blob, keyed by freight mode.
func (s *Shipment) summarize() *ShipmentSummary {
	summary := &ShipmentSummary{
		Id:              s.ID,
		ReferenceNumber: s.ReferenceNumber,
		Type:            FreightModeFromCode(s.ShipmentType),
		Status:          s.Status,
		CreatedAt:       s.CreatedAt,
	}

	if s.Consignee != nil {
		summary.ConsigneeName = s.Consignee.Name
	} else if s.ConsigneeData != "" {
		if snap, err := decodeBlob[ClientSnapshot](s.ConsigneeData); err == nil {
			summary.ConsigneeName = snap.Name
		}
	}

	if details, err := s.decodeDetails(); err == nil {
		if summary.Type == FreightModeSea {
			summary.TrackingNumber = details["bl_number"]
		} else {
			summary.TrackingNumber = details["awb_number"]
		}
	}
	return summary
}
