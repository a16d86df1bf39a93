package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.CodingStructure == nil || *cfg.CodingStructure != "RA" {
		t.Errorf("Expected CodingStructure RA, got %v", cfg.CodingStructure)
	}
	if cfg.MaxFramesSinceDetection == nil || *cfg.MaxFramesSinceDetection != 10 {
		t.Errorf("Expected MaxFramesSinceDetection 10, got %v", cfg.MaxFramesSinceDetection)
	}
	if cfg.GetBlockSize() != 128 {
		t.Errorf("GetBlockSize() = %d, want 128", cfg.GetBlockSize())
	}
	if cfg.GetNormalizeBitrate() != true {
		t.Errorf("GetNormalizeBitrate() = %v, want true", cfg.GetNormalizeBitrate())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultTuningConfig(), fromFile); diff != "" {
		t.Errorf("defaults file differs from DefaultTuningConfig (-builtin +file):\n%s", diff)
	}
}

func TestEmptyConfigGettersMatchDefaults(t *testing.T) {
	empty := EmptyTuningConfig()
	def := DefaultTuningConfig()

	if empty.GetCodingStructure() != def.GetCodingStructure() {
		t.Errorf("coding structure: %s vs %s", empty.GetCodingStructure(), def.GetCodingStructure())
	}
	if empty.GetMotionThreshold() != def.GetMotionThreshold() {
		t.Errorf("motion threshold: %f vs %f", empty.GetMotionThreshold(), def.GetMotionThreshold())
	}
	if empty.GetVarianceThreshold() != def.GetVarianceThreshold() {
		t.Errorf("variance threshold: %f vs %f", empty.GetVarianceThreshold(), def.GetVarianceThreshold())
	}
	if empty.GetRingMax() != def.GetRingMax() {
		t.Errorf("ring max: %f vs %f", empty.GetRingMax(), def.GetRingMax())
	}
	if empty.GetBaseAlphaBackground() != def.GetBaseAlphaBackground() {
		t.Errorf("base alpha bg: %f vs %f", empty.GetBaseAlphaBackground(), def.GetBaseAlphaBackground())
	}
	if diff := cmp.Diff(def.GetQPValues(), empty.GetQPValues()); diff != "" {
		t.Errorf("qp values differ: %s", diff)
	}
	if diff := cmp.Diff(def.GetQPOffsetList(), empty.GetQPOffsetList()); diff != "" {
		t.Errorf("qp offsets differ: %s", diff)
	}
	if empty.GetMotionSmoothing() != def.GetMotionSmoothing() {
		t.Errorf("motion smoothing: %d vs %d", empty.GetMotionSmoothing(), def.GetMotionSmoothing())
	}
	if empty.GetImportanceWindow() != def.GetImportanceWindow() {
		t.Errorf("importance window: %d vs %d", empty.GetImportanceWindow(), def.GetImportanceWindow())
	}
	if empty.GetDetectorTimeout() != 30*time.Second {
		t.Errorf("GetDetectorTimeout() = %v, want 30s", empty.GetDetectorTimeout())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "coding_structure": "LD",
  "motion_threshold": 12.5,
  "normalize_bitrate": false,
  "qp_values": [20, 25, 30, 35, 40]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetCodingStructure() != "LD" {
		t.Errorf("Expected coding structure LD, got %s", cfg.GetCodingStructure())
	}
	if cfg.GetMotionThreshold() != 12.5 {
		t.Errorf("Expected MotionThreshold 12.5, got %f", cfg.GetMotionThreshold())
	}
	if cfg.GetNormalizeBitrate() {
		t.Error("Expected NormalizeBitrate false")
	}
	if len(cfg.GetQPValues()) != 5 {
		t.Errorf("Expected 5 qp values, got %v", cfg.GetQPValues())
	}
	// Unset fields fall back to defaults.
	if cfg.GetBlockSize() != 128 {
		t.Errorf("Expected default BlockSize 128, got %d", cfg.GetBlockSize())
	}
}

func TestLoadTuningConfigYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.yaml")

	testYAML := `coding_structure: AI
block_size: 64
ring_min: 4
ring_max: 20
qp_offset_list: [1, 1, 2]
`
	if err := os.WriteFile(configPath, []byte(testYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetCodingStructure() != "AI" {
		t.Errorf("Expected AI, got %s", cfg.GetCodingStructure())
	}
	if cfg.GetBlockSize() != 64 {
		t.Errorf("Expected BlockSize 64, got %d", cfg.GetBlockSize())
	}
	if cfg.GetRingMin() != 4 || cfg.GetRingMax() != 20 {
		t.Errorf("Expected ring [4,20], got [%f,%f]", cfg.GetRingMin(), cfg.GetRingMax())
	}
	if diff := cmp.Diff([]int{1, 1, 2}, cfg.GetQPOffsetList()); diff != "" {
		t.Errorf("qp offsets differ: %s", diff)
	}
}

func TestLoadTuningConfigTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.toml")

	testTOML := `coding_structure = "LD"
qp_values = [27, 32]
encoder_preset = "fast"
encoder_args = "--MaxCUSize 64 --Tier high"
detector_rate_limit = 2.5
`
	if err := os.WriteFile(configPath, []byte(testTOML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetCodingStructure() != "LD" {
		t.Errorf("Expected LD, got %s", cfg.GetCodingStructure())
	}
	if diff := cmp.Diff([]int{27, 32}, cfg.GetQPValues()); diff != "" {
		t.Errorf("qp values differ: %s", diff)
	}
	if cfg.GetEncoderPreset() != "fast" {
		t.Errorf("Expected preset fast, got %s", cfg.GetEncoderPreset())
	}
	if cfg.GetEncoderArgs() != "--MaxCUSize 64 --Tier high" {
		t.Errorf("unexpected encoder args %q", cfg.GetEncoderArgs())
	}
	if cfg.GetDetectorRateLimit() != 2.5 {
		t.Errorf("Expected rate limit 2.5, got %f", cfg.GetDetectorRateLimit())
	}
	if cfg.GetEncoderThreads() != 8 {
		t.Errorf("Expected default threads 8, got %d", cfg.GetEncoderThreads())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigBadExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.ini")
	if err := os.WriteFile(configPath, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error for .ini extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "motion_threshold": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "unknown coding structure", cfg: &TuningConfig{CodingStructure: ptrString("XX")}, wantErr: true},
		{name: "zero intra period", cfg: &TuningConfig{IntraPeriod: ptrInt(0)}, wantErr: true},
		{name: "zero ceiling", cfg: &TuningConfig{MaxFramesSinceDetection: ptrInt(0)}, wantErr: true},
		{name: "negative motion threshold", cfg: &TuningConfig{MotionThreshold: ptrFloat64(-1)}, wantErr: true},
		{name: "confidence above one", cfg: &TuningConfig{ConfidenceThreshold: ptrFloat64(1.5)}, wantErr: true},
		{name: "ring min above max", cfg: &TuningConfig{RingMin: ptrFloat64(60), RingMax: ptrFloat64(50)}, wantErr: true},
		{name: "motion cap below one", cfg: &TuningConfig{RingMotionCap: ptrFloat64(0.5)}, wantErr: true},
		{name: "zero block size", cfg: &TuningConfig{BlockSize: ptrInt(0)}, wantErr: true},
		{name: "qp max above 51", cfg: &TuningConfig{QPMax: ptrInt(52)}, wantErr: true},
		{name: "qp value out of range", cfg: &TuningConfig{QPValues: []int{22, 60}}, wantErr: true},
		{name: "invalid timeout", cfg: &TuningConfig{DetectorTimeout: ptrString("soon")}, wantErr: true},
		{name: "negative workers", cfg: &TuningConfig{Workers: ptrInt(-2)}, wantErr: true},
		{name: "unknown preset", cfg: &TuningConfig{EncoderPreset: ptrString("ludicrous")}, wantErr: true},
		{name: "bad version constraint", cfg: &TuningConfig{EncoderVersion: ptrString(">= one")}, wantErr: true},
		{name: "version range", cfg: &TuningConfig{EncoderVersion: ptrString(">= 1.9, < 2")}},
		{name: "zero motion smoothing", cfg: &TuningConfig{MotionSmoothing: ptrInt(0)}, wantErr: true},
		{name: "zero importance window", cfg: &TuningConfig{ImportanceWindow: ptrInt(0)}, wantErr: true},
		{name: "negative rate limit", cfg: &TuningConfig{DetectorRateLimit: ptrFloat64(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDetectorTimeout(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{name: "explicit", cfg: &TuningConfig{DetectorTimeout: ptrString("5s")}, want: 5 * time.Second},
		{name: "empty string", cfg: &TuningConfig{DetectorTimeout: ptrString("")}, want: 30 * time.Second},
		{name: "unparseable", cfg: &TuningConfig{DetectorTimeout: ptrString("x")}, want: 30 * time.Second},
		{name: "nil", cfg: &TuningConfig{}, want: 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDetectorTimeout(); got != tt.want {
				t.Errorf("GetDetectorTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
