package models

import (
	"context"
	"regexp"
	"testing"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

func TestGenerateReferenceNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^CLEX-(IMS|IAS)\d{2}-\d{4}$`)
	for i := 0; i < 50; i++ {
		ref := generateReferenceNumber(TransactionTypeSeaImport)
		if !re.MatchString(ref) {
			t.Fatalf("generateReferenceNumber(IMS) = %q, want CLEX-IMS<yy>-<nnnn>", ref)
		}
	}
	ref := generateReferenceNumber(TransactionTypeAirImport)
	if !re.MatchString(ref) {
		t.Fatalf("generateReferenceNumber(IAS) = %q, want CLEX-IAS<yy>-<nnnn>", ref)
	}
}

func TestFreightModeFromCode(t *testing.T) {
	if got := FreightModeFromCode(TransactionTypeSeaImport); got != FreightModeSea {
		t.Fatalf("FreightModeFromCode(IMS) = %q, want %q", got, FreightModeSea)
	}
	if got := FreightModeFromCode(TransactionTypeAirImport); got != FreightModeAir {
		t.Fatalf("FreightModeFromCode(IAS) = %q, want %q", got, FreightModeAir)
	}
	// unknown codes classify as air rather than failing
	if got := FreightModeFromCode("XYZ"); got != FreightModeAir {
		t.Fatalf("FreightModeFromCode(XYZ) = %q, want %q", got, FreightModeAir)
	}
}

func TestStageTransitions(t *testing.T) {
	cases := []struct {
		from    ShipmentStage
		to      ShipmentStage
		allowed bool
	}{
		{StageClientDetails, StageShipmentDetails, true},
		{StageClientDetails, StageCompleted, true},
		{StageAssessment, StageAssessment, true},
		{StageDelivery, StageAssessment, false},
		{StageCompleted, StageDelivery, false},
		{StageCompleted, StageCompleted, true},
		{StageDocumentCollection, StageCustomsClearance, true},
		{"Made Up Stage", StageDelivery, false},
		{StageDelivery, "Made Up Stage", false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStageRecognized(t *testing.T) {
	if !StageCustomsClearance.Recognized() {
		t.Fatal("Customs Clearance should be recognized")
	}
	if ShipmentStage("In Transit").Recognized() {
		t.Fatal("unknown stage should not be recognized")
	}
}

func TestDefaultChecklistTransportDocument(t *testing.T) {
	sea := defaultChecklist(TransactionTypeSeaImport)
	if sea[0].Name != "Bill of Lading" {
		t.Fatalf("sea checklist starts with %q, want Bill of Lading", sea[0].Name)
	}
	air := defaultChecklist(TransactionTypeAirImport)
	if air[0].Name != "Airway Bill" {
		t.Fatalf("air checklist starts with %q, want Airway Bill", air[0].Name)
	}
	for _, doc := range sea {
		if doc.Status != DocumentStatusPending {
			t.Fatalf("seeded checklist entry %q has status %q, want pending", doc.Name, doc.Status)
		}
		if doc.Files == nil || len(doc.Files) != 0 {
			t.Fatalf("seeded checklist entry %q should start with an empty files list", doc.Name)
		}
	}
}

func TestApplyUploadToChecklistMatch(t *testing.T) {
	checklist := defaultChecklist(TransactionTypeSeaImport)

	updated, matched := applyUploadToChecklist(checklist, "Commercial Invoice", "https://files.example/1/shipments/ci.pdf")
	if !matched {
		t.Fatal("expected a checklist match for Commercial Invoice")
	}
	var entry *ChecklistDocument
	for i := range updated {
		if updated[i].Name == "Commercial Invoice" {
			entry = &updated[i]
		}
	}
	if entry == nil {
		t.Fatal("Commercial Invoice entry missing after upload")
	}
	if len(entry.Files) != 1 || entry.Files[0] != "https://files.example/1/shipments/ci.pdf" {
		t.Fatalf("files = %v, want the uploaded url appended", entry.Files)
	}
	if entry.Status != DocumentStatusDraft {
		t.Fatalf("status = %q, want draft after first upload", entry.Status)
	}

	// second upload appends without resetting a later status
	entry.Status = DocumentStatusVerified
	updated, matched = applyUploadToChecklist(updated, "Commercial Invoice", "https://files.example/1/shipments/ci-v2.pdf")
	if !matched {
		t.Fatal("expected a second match")
	}
	for _, doc := range updated {
		if doc.Name == "Commercial Invoice" {
			if len(doc.Files) != 2 {
				t.Fatalf("files = %v, want two urls", doc.Files)
			}
			if doc.Status != DocumentStatusVerified {
				t.Fatalf("status = %q, verified entries must not regress to draft", doc.Status)
			}
		}
	}
}

func TestApplyUploadToChecklistUnmatchedIsNoOp(t *testing.T) {
	checklist := defaultChecklist(TransactionTypeAirImport)
	before, err := encodeBlob(checklist)
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}

	updated, matched := applyUploadToChecklist(checklist, "Fumigation Certificate", "https://files.example/1/shipments/fc.pdf")
	if matched {
		t.Fatal("Fumigation Certificate is not on the air checklist, should not match")
	}
	after, err := encodeBlob(updated)
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	if before != after {
		t.Fatalf("unmatched upload mutated the checklist:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestApplyPatchAbsentSectionsUntouched(t *testing.T) {
	details := ShipmentDetails{"bl_number": "MAEU1234567", "eta": "2026-09-15"}
	detailsData, err := encodeBlob(details)
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	notes := []ShipmentNote{{Author: "Ana", Text: "rush entry", CreatedAt: time.Now()}}
	notesData, err := encodeBlob(notes)
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}

	shipment := &Shipment{
		ShipmentDetailsData: detailsData,
		NotesData:           notesData,
	}

	newDetails := ShipmentDetails{"bl_number": "MAEU7654321"}
	if err := shipment.applyPatch(&ShipmentPatch{ShipmentDetails: &newDetails}); err != nil {
		t.Fatalf("applyPatch: %v", err)
	}

	if shipment.NotesData != notesData {
		t.Fatal("notes were not in the patch and must not change")
	}
	decoded, err := shipment.decodeDetails()
	if err != nil {
		t.Fatalf("decodeDetails: %v", err)
	}
	if decoded["bl_number"] != "MAEU7654321" {
		t.Fatalf("bl_number = %q, want the patched value", decoded["bl_number"])
	}
	if _, ok := decoded["eta"]; ok {
		t.Fatal("a present section replaces the blob wholesale; eta should be gone")
	}
}

func TestApplyPatchComputations(t *testing.T) {
	shipment := &Shipment{}
	comps := Computations{
		"customs_duty": decimal.NewFromFloat(1520.50),
		"vat":          decimal.NewFromInt(3200),
	}
	if err := shipment.applyPatch(&ShipmentPatch{Computations: &comps}); err != nil {
		t.Fatalf("applyPatch: %v", err)
	}
	decoded, err := decodeBlob[Computations](shipment.ComputationsData)
	if err != nil {
		t.Fatalf("decodeBlob: %v", err)
	}
	if !decoded["customs_duty"].Equal(decimal.NewFromFloat(1520.50)) {
		t.Fatalf("customs_duty = %s, want 1520.5", decoded["customs_duty"])
	}
}

func TestApplyPatchTimeline(t *testing.T) {
	seeded := []TimelineEvent{{
		Status:    string(StageClientDetails),
		Timestamp: time.Now().Add(-time.Hour),
	}}
	seededData, err := encodeBlob(seeded)
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	shipment := &Shipment{TimelineData: seededData}

	corrected := []TimelineEvent{
		{Status: string(StageClientDetails), Timestamp: time.Now().Add(-time.Hour)},
		{Status: string(StageShipmentDetails), Timestamp: time.Now(), Description: "entry encoded"},
	}
	if err := shipment.applyPatch(&ShipmentPatch{Timeline: &corrected}); err != nil {
		t.Fatalf("applyPatch: %v", err)
	}
	decoded, err := shipment.decodeTimeline()
	if err != nil {
		t.Fatalf("decodeTimeline: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Status != string(StageShipmentDetails) {
		t.Fatalf("timeline = %+v, want the patched two entries", decoded)
	}

	bad := []TimelineEvent{{Status: "", Timestamp: time.Now()}}
	if err := shipment.applyPatch(&ShipmentPatch{Timeline: &bad}); err == nil {
		t.Fatal("expected validation error for a timeline entry without a status")
	}
	decoded, err = shipment.decodeTimeline()
	if err != nil {
		t.Fatalf("decodeTimeline: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatal("failed patch must leave the stored timeline untouched")
	}
}

func TestCreateShipmentRejectsUnknownType(t *testing.T) {
	ctx := utils.SetUserIdInContext(context.Background(), 7)
	if _, err := CreateShipment(ctx, &NewShipment{ShipmentType: "EXP"}); err == nil {
		t.Fatal("codes outside the intake forms must be rejected")
	}
}

func TestApplyPatchRejectsInvalidCargo(t *testing.T) {
	shipment := &Shipment{}
	bad := []CargoItem{{Description: "", Packages: -1}}
	if err := shipment.applyPatch(&ShipmentPatch{Cargo: &bad}); err == nil {
		t.Fatal("expected validation error for cargo with negative package count")
	}
	if shipment.CargoData != "" {
		t.Fatal("failed patch must leave the row untouched")
	}
}
