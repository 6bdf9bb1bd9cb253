package telemetry

import (
	"testing"
)

func TestSafeAttributesFiltersSensitiveKeys(t *testing.T) {
	kvs := map[string]interface{}{
		"extracted_text": "should drop",
		"image_b64":      "drop",
		"api_key":        "sk-123",
		"api_secret":     "drop",
		"token":          "abc",
		"outcome":        "UNSAFE",
		"long_string":    string(make([]byte, 600)),
		"project_id":     "proj",
		"authorization":  "secret",
	}

	attrs := SafeAttributes(kvs)
	for _, a := range attrs {
		switch string(a.Key) {
		case "extracted_text", "image_b64", "api_key", "api_secret", "token", "authorization":
			t.Fatalf("unexpected unsafe attribute %s", a.Key)
		case "long_string":
			t.Fatalf("expected long string to be skipped")
		}
	}

	var sawOutcome, sawProject bool
	for _, a := range attrs {
		if string(a.Key) == "outcome" {
			sawOutcome = true
		}
		if string(a.Key) == "project_id" {
			sawProject = true
		}
	}
	if !sawOutcome || !sawProject {
		t.Fatalf("safe keys missing from %v", attrs)
	}
}
