package models

import (
	"testing"
	"time"
)

func seaShipmentFixture(t *testing.T) *Shipment {
	t.Helper()

	detailsData, err := encodeBlob(ShipmentDetails{
		"bl_number":  "MAEU1234567",
		"awb_number": "",
		"eta":        "2026-09-15",
	})
	if err != nil {
		t.Fatalf("encodeBlob details: %v", err)
	}
	timelineData, err := encodeBlob([]TimelineEvent{{
		Status:    string(StageClientDetails),
		Timestamp: time.Now(),
	}})
	if err != nil {
		t.Fatalf("encodeBlob timeline: %v", err)
	}
	checklistData, err := encodeBlob(defaultChecklist(TransactionTypeSeaImport))
	if err != nil {
		t.Fatalf("encodeBlob checklist: %v", err)
	}

	return &Shipment{
		ID:                  7,
		UserId:              1,
		ReferenceNumber:     "CLEX-IMS26-0007",
		ShipmentType:        TransactionTypeSeaImport,
		Status:              string(StageShipmentDetails),
		ShipmentDetailsData: detailsData,
		TimelineData:        timelineData,
		DocumentsData:       checklistData,
		CreatedAt:           time.Now(),
	}
}

func TestProjectShipmentSnapshotFallback(t *testing.T) {
	shipment := seaShipmentFixture(t)

	snapData, err := encodeBlob(ClientSnapshot{
		Name:            "Pacific Traders Inc.",
		BusinessAddress: "Manila",
		Tin:             "123-456-789-000",
	})
	if err != nil {
		t.Fatalf("encodeBlob snapshot: %v", err)
	}
	shipment.ConsigneeData = snapData

	view, err := ProjectShipment(shipment)
	if err != nil {
		t.Fatalf("ProjectShipment: %v", err)
	}

	if view.Consignee.Source != ClientSourceSnapshot {
		t.Fatalf("consignee source = %q, want snapshot", view.Consignee.Source)
	}
	if view.Consignee.Name != "Pacific Traders Inc." {
		t.Fatalf("consignee name = %q", view.Consignee.Name)
	}
	if view.Exporter.Source != ClientSourceNone {
		t.Fatalf("exporter source = %q, want none", view.Exporter.Source)
	}
	if view.FreightMode != FreightModeSea {
		t.Fatalf("freight mode = %q, want sea", view.FreightMode)
	}
}

func TestProjectShipmentRelationsResolveIndependently(t *testing.T) {
	shipment := seaShipmentFixture(t)

	// stale snapshot alongside a live link: the link wins for the consignee
	staleSnap, err := encodeBlob(ClientSnapshot{Name: "Old Name Co."})
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	shipment.ConsigneeData = staleSnap
	shipment.Consignee = &Consignee{
		ID:     12,
		UserId: 1,
		Name:   "Renamed Trading Corp.",
		Tin:    "987-654-321-000",
	}

	exporterSnap, err := encodeBlob(ClientSnapshot{
		Name:            "Shenzhen Exports Ltd.",
		BusinessAddress: "Shenzhen",
	})
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	shipment.ExporterData = exporterSnap

	view, err := ProjectShipment(shipment)
	if err != nil {
		t.Fatalf("ProjectShipment: %v", err)
	}

	if view.Consignee.Source != ClientSourceLinked {
		t.Fatalf("consignee source = %q, want linked", view.Consignee.Source)
	}
	if view.Consignee.Name != "Renamed Trading Corp." {
		t.Fatalf("linked consignee must show the live row, got %q", view.Consignee.Name)
	}
	if view.Exporter.Source != ClientSourceSnapshot {
		t.Fatalf("exporter source = %q, want snapshot", view.Exporter.Source)
	}
	if view.Exporter.Name != "Shenzhen Exports Ltd." {
		t.Fatalf("exporter name = %q", view.Exporter.Name)
	}
}

func TestProjectShipmentEmptyBlobs(t *testing.T) {
	shipment := &Shipment{
		ID:              3,
		ReferenceNumber: "CLEX-IAS26-0042",
		ShipmentType:    TransactionTypeAirImport,
		Status:          string(StageClientDetails),
	}
	view, err := ProjectShipment(shipment)
	if err != nil {
		t.Fatalf("ProjectShipment on empty row: %v", err)
	}
	if view.Consignee.Source != ClientSourceNone || view.Exporter.Source != ClientSourceNone {
		t.Fatal("empty row must project with source none on both relations")
	}
	if view.FreightMode != FreightModeAir {
		t.Fatalf("freight mode = %q, want air", view.FreightMode)
	}
}

func TestSummarizeTrackingNumberByFreightMode(t *testing.T) {
	sea := seaShipmentFixture(t)
	summary := sea.summarize()
	if summary.Type != FreightModeSea {
		t.Fatalf("type = %q, want sea", summary.Type)
	}
	if summary.TrackingNumber != "MAEU1234567" {
		t.Fatalf("sea shipments track by bl_number, got %q", summary.TrackingNumber)
	}

	detailsData, err := encodeBlob(ShipmentDetails{"awb_number": "618-12345675", "bl_number": "ignored"})
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	air := &Shipment{
		ShipmentType:        TransactionTypeAirImport,
		ShipmentDetailsData: detailsData,
	}
	if got := air.summarize().TrackingNumber; got != "618-12345675" {
		t.Fatalf("air shipments track by awb_number, got %q", got)
	}
}

func TestSummarizeConsigneeNamePrefersLinkedRow(t *testing.T) {
	shipment := seaShipmentFixture(t)
	snap, err := encodeBlob(ClientSnapshot{Name: "Snapshot Name"})
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	shipment.ConsigneeData = snap

	if got := shipment.summarize().ConsigneeName; got != "Snapshot Name" {
		t.Fatalf("unlinked shipment should fall back to the snapshot, got %q", got)
	}

	shipment.Consignee = &Consignee{Name: "Linked Name"}
	if got := shipment.summarize().ConsigneeName; got != "Linked Name" {
		t.Fatalf("linked shipment should show the live row, got %q", got)
	}
}
