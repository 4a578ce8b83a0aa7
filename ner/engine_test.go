package ner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeModelDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestValidateModelDir(t *testing.T) {
	if err := ValidateModelDir(writeModelDir(t, "model.onnx", "tokenizer.json")); err != nil {
		t.Errorf("Expected complete directory to validate, got: %v", err)
	}
}

func TestValidateModelDir_Missing(t *testing.T) {
	err := ValidateModelDir(filepath.Join(t.TempDir(), "nope"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected missing-directory error, got: %v", err)
	}
}

func TestValidateModelDir_MissingFiles(t *testing.T) {
	err := ValidateModelDir(writeModelDir(t, "tokenizer.json"))
	if err == nil || !strings.Contains(err.Error(), "model.onnx") {
		t.Errorf("Expected missing model.onnx reported, got: %v", err)
	}
}

func TestValidateModelDir_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	err := ValidateModelDir(file)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("Expected not-a-directory error, got: %v", err)
	}
}

func TestLabelsPath(t *testing.T) {
	if got := LabelsPath("/opt/model"); got != filepath.Join("/opt/model", "label_mappings.json") {
		t.Errorf("Unexpected labels path: %s", got)
	}
}

func TestClassifyError(t *testing.T) {
	inner := os.ErrNotExist
	err := &ClassifyError{Kind: FailureSession, Err: inner}

	if !strings.Contains(err.Error(), "session") {
		t.Errorf("Expected kind in message, got %q", err.Error())
	}
	if err.Unwrap() != inner {
		t.Error("Expected Unwrap to expose the inner error")
	}
}

func TestNeutralResult(t *testing.T) {
	result := NeutralResult("some line")

	if result.Label != LabelBenign || result.Confidence != 0.0 || result.Flagged {
		t.Errorf("Unexpected neutral result: %+v", result)
	}
	if result.Text != "some line" {
		t.Errorf("Expected text preserved, got %q", result.Text)
	}
}
