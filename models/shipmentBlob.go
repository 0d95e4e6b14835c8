package models

import (
	"errors"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

// The shipment row carries several independently-updated JSON text columns.
// The legacy system stored them as opaque blobs; here every blob is a typed
// record validated at the store boundary before it is encoded.

// ClientSnapshot is the denormalized copy of a consignee/exporter captured at
// linking time. It is kept alongside the relational link so shipments created
// before client rows existed still render.
type ClientSnapshot struct {
	Id              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	RegisteredName  string `json:"registered_name,omitempty"`
	BusinessAddress string `json:"business_address"`
	Tin             string `json:"tin,omitempty"`
	Brn             string `json:"brn,omitempty"`
	ContactPerson   string `json:"contact_person"`
	ContactNumber   string `json:"contact_number"`
	Email           string `json:"email"`
}

// ShipmentDetails is the free-form key/value section of the intake form
// (bl_number, awb_number, eta, contact fields, ...).
type ShipmentDetails map[string]string

// TimelineEvent is one entry of the append-only status log.
type TimelineEvent struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// ChecklistDocument is one entry of the per-shipment document checklist.
// Distinct from the relational Document rows attached to a consignee (KYC).
type ChecklistDocument struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

type ShipmentNote struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type CargoItem struct {
	Description  string          `json:"description"`
	Packages     int             `json:"packages"`
	GrossWeight  decimal.Decimal `json:"gross_weight"`
	Measurement  decimal.Decimal `json:"measurement"`
	ContainerNo  string          `json:"container_no,omitempty"`
	MarksNumbers string          `json:"marks_numbers,omitempty"`
}

type StatementOfFactEntry struct {
	Date    time.Time `json:"date"`
	Event   string    `json:"event"`
	Remarks string    `json:"remarks,omitempty"`
}

// Computations holds assessed duty/tax amounts keyed by line name
// (e.g. "customs_duty", "vat", "brokerage_fee").
type Computations map[string]decimal.Decimal

func validateTimeline(events []TimelineEvent) error {
	for _, e := range events {
		if e.Status == "" {
			return errors.New("timeline entry requires a status")
		}
		if e.Timestamp.IsZero() {
			return errors.New("timeline entry requires a timestamp")
		}
	}
	return nil
}

func validateChecklist(documents []ChecklistDocument) error {
	for _, d := range documents {
		if d.Name == "" {
			return errors.New("checklist entry requires a name")
		}
	}
	return nil
}

func validateCargo(items []CargoItem) error {
	for _, c := range items {
		if c.Description == "" {
			return errors.New("cargo entry requires a description")
		}
		if c.Packages < 0 {
			return errors.New("cargo package count cannot be negative")
		}
	}
	return nil
}

func validateStatementOfFacts(entries []StatementOfFactEntry) error {
	for _, e := range entries {
		if e.Event == "" {
			return errors.New("statement of facts entry requires an event")
		}
	}
	return nil
}

/* blob codecs */

func encodeBlob[T any](v T) (string, error) {
	return utils.MarshalToJSON(v)
}

// decodeBlob tolerates the empty column ("" or never written) by returning
// the zero value, so rows migrated from the legacy schema still decode.
func decodeBlob[T any](data string) (T, error) {
	var out T
	if data == "" {
		return out, nil
	}
	if err := utils.UnmarshalFromJSON([]byte(data), &out); err != nil {
		return out, err
	}
	return out, nil
}
