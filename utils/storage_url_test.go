package utils

import "testing"

func TestExtractObjectKeyFromURL(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"42/shipments/bol.pdf", "42/shipments/bol.pdf"},
		{"gs://clex-uploads/42/shipments/bol.pdf", "42/shipments/bol.pdf"},
		{"https://storage.googleapis.com/clex-uploads/42/shipments/bol.pdf", "42/shipments/bol.pdf"},
		{"https://clex-uploads.storage.googleapis.com/42/shipments/bol.pdf", "42/shipments/bol.pdf"},
		{"https://storage.cloud.google.com/clex-uploads/42/kyc/tin.png", "42/kyc/tin.png"},
		{"https://api.clex.test/uploads/object?key=42/shipments/bol.pdf", "42/shipments/bol.pdf"},
		{"42/../1/shipments/bol.pdf", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractObjectKeyFromURL(tc.in); got != tc.expected {
			t.Errorf("ExtractObjectKeyFromURL(%q) = %q, want %q", tc.in, got, tc.expected)
		}
	}
}

func TestBuildObjectAccessURLWithBase(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://files.clex.test")
	if got := BuildObjectAccessURL("42/shipments/bol.pdf"); got != "https://files.clex.test/42/shipments/bol.pdf" {
		t.Fatalf("BuildObjectAccessURL = %q", got)
	}
}

func TestBuildObjectAccessURLRoundTrip(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_BASE_URL", "")
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "clex-uploads")

	key := "7/consignees/permit.pdf"
	built := BuildObjectAccessURL(key)
	if got := ExtractObjectKeyFromURL(built); got != key {
		t.Fatalf("round trip lost the key: built %q, extracted %q", built, got)
	}
}
