package utils

import (
	"net/http/httptest"
	"testing"
)

func TestValidators(t *testing.T) {
	if !ValidateEmail("ana@example.com") || ValidateEmail("ana@") {
		t.Errorf("ValidateEmail")
	}
	if ok, _ := ValidatePassword("short"); ok {
		t.Errorf("short password accepted")
	}
	for _, s := range []string{"potholes", "pot-holes_2024"} {
		if !ValidateSlug(s) {
			t.Errorf("ValidateSlug(%q) = false", s)
		}
	}
	for _, s := range []string{"Potholes", "-x", "a b", ""} {
		if ValidateSlug(s) {
			t.Errorf("ValidateSlug(%q) = true", s)
		}
	}
	for _, s := range []string{"where", "q_1"} {
		if !ValidateFieldName(s) {
			t.Errorf("ValidateFieldName(%q) = false", s)
		}
	}
	for _, s := range []string{"1st", "_lat", "has space", "abcdefghijklmnopqrstuvwxyz0123456"} {
		if ValidateFieldName(s) {
			t.Errorf("ValidateFieldName(%q) = true", s)
		}
	}
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	if got := RemoteIP(r); got != "192.0.2.1" {
		t.Errorf("RemoteIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	if got := RemoteIP(r); got != "10.0.0.2" {
		t.Errorf("RemoteIP with proxy = %q, want the last hop", got)
	}
}
