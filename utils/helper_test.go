package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	valid := []string{"ops@clearexpress.ph", "ana.santos+kyc@example.com"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	invalid := []string{"", "no-at-sign", "x@", "@example.com", "a b@example.com"}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+639171234567", CountryCode); err != nil {
		t.Fatalf("valid PH mobile rejected: %v", err)
	}
	if err := ValidatePhoneNumber("12345", CountryCode); err == nil {
		t.Fatal("short junk number accepted")
	}
}

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")

	token, err := JwtGenerate(42, "B")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("JwtValidate: %v", err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatal("claims have the wrong type")
	}
	if claims.ID != 42 || claims.Role != "B" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestJwtValidateRejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not-a-token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
