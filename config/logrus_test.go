package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogErrorNilError(t *testing.T) {
	logger := logrus.New()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	// a nil error falls back to the context string as the message
	LogError(logger, "Shipment", "UpdateShipmentStatus", "unrecognized stage", "Lost At Sea", nil)

	out := buf.String()
	if !strings.Contains(out, "unrecognized stage") {
		t.Fatalf("log output missing context message: %q", out)
	}
	if !strings.Contains(out, "Lost At Sea") {
		t.Fatalf("log output missing data field: %q", out)
	}
}

func TestLogErrorMessageFromError(t *testing.T) {
	logger := logrus.New()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	LogError(logger, "Shipment", "CreateShipment", "insert failed", nil, errors.New("duplicate entry"))

	out := buf.String()
	if !strings.Contains(out, "duplicate entry") {
		t.Fatalf("log output missing error message: %q", out)
	}
}
