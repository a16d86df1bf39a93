package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// It must agree with DefaultTuningConfig; a test keeps the two in sync.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the flat root configuration for the ROI pipeline.
// Every field is optional; the Get* accessors return the built-in default
// for anything not set, so partial JSON or YAML files are safe.
type TuningConfig struct {
	// Coding structure
	CodingStructure *string `json:"coding_structure,omitempty" yaml:"coding_structure,omitempty" toml:"coding_structure,omitempty"` // AI, RA or LD
	IntraPeriod     *int    `json:"intra_period,omitempty" yaml:"intra_period,omitempty" toml:"intra_period,omitempty"`
	GOPSize         *int    `json:"gop_size,omitempty" yaml:"gop_size,omitempty" toml:"gop_size,omitempty"`
	QPOffsetList    []int   `json:"qp_offset_list,omitempty" yaml:"qp_offset_list,omitempty" toml:"qp_offset_list,omitempty"`

	// Propagation
	MaxFramesSinceDetection *int     `json:"max_frames_since_detection,omitempty" yaml:"max_frames_since_detection,omitempty" toml:"max_frames_since_detection,omitempty"`
	MotionThreshold         *float64 `json:"motion_threshold,omitempty" yaml:"motion_threshold,omitempty" toml:"motion_threshold,omitempty"`
	DivergenceThreshold     *float64 `json:"divergence_threshold,omitempty" yaml:"divergence_threshold,omitempty" toml:"divergence_threshold,omitempty"`
	VarianceThreshold       *float64 `json:"variance_threshold,omitempty" yaml:"variance_threshold,omitempty" toml:"variance_threshold,omitempty"`
	MinBoxArea              *float64 `json:"min_box_area,omitempty" yaml:"min_box_area,omitempty" toml:"min_box_area,omitempty"`
	MaxDetectionRetries     *int     `json:"max_detection_retries,omitempty" yaml:"max_detection_retries,omitempty" toml:"max_detection_retries,omitempty"`

	// Detector
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty" toml:"confidence_threshold,omitempty"`
	DetectorTimeout     *string  `json:"detector_timeout,omitempty" yaml:"detector_timeout,omitempty" toml:"detector_timeout,omitempty"` // duration string like "30s"

	// Motion estimation
	MotionBlockSize   *int `json:"motion_block_size,omitempty" yaml:"motion_block_size,omitempty" toml:"motion_block_size,omitempty"`
	MotionSearchRange *int `json:"motion_search_range,omitempty" yaml:"motion_search_range,omitempty" toml:"motion_search_range,omitempty"`
	MotionSmoothing   *int `json:"motion_smoothing,omitempty" yaml:"motion_smoothing,omitempty" toml:"motion_smoothing,omitempty"` // matcher blocks per side pooled by median

	// Hierarchical ROI rings
	BaseRingRatio    *float64 `json:"base_ring_ratio,omitempty" yaml:"base_ring_ratio,omitempty" toml:"base_ring_ratio,omitempty"`
	RingMin          *float64 `json:"ring_min,omitempty" yaml:"ring_min,omitempty" toml:"ring_min,omitempty"`
	RingMax          *float64 `json:"ring_max,omitempty" yaml:"ring_max,omitempty" toml:"ring_max,omitempty"`
	RingMotionFactor *float64 `json:"ring_motion_factor,omitempty" yaml:"ring_motion_factor,omitempty" toml:"ring_motion_factor,omitempty"`
	RingMotionNorm   *float64 `json:"ring_motion_norm,omitempty" yaml:"ring_motion_norm,omitempty" toml:"ring_motion_norm,omitempty"`
	RingMotionCap    *float64 `json:"ring_motion_cap,omitempty" yaml:"ring_motion_cap,omitempty" toml:"ring_motion_cap,omitempty"`
	ImportanceWindow *int     `json:"importance_window,omitempty" yaml:"importance_window,omitempty" toml:"importance_window,omitempty"` // frames in the temporal median

	// Quantization
	BaseAlphaCore        *float64 `json:"base_alpha_core,omitempty" yaml:"base_alpha_core,omitempty" toml:"base_alpha_core,omitempty"`
	BaseAlphaContext     *float64 `json:"base_alpha_context,omitempty" yaml:"base_alpha_context,omitempty" toml:"base_alpha_context,omitempty"`
	BaseAlphaBackground  *float64 `json:"base_alpha_background,omitempty" yaml:"base_alpha_background,omitempty" toml:"base_alpha_background,omitempty"`
	TextureWeight        *float64 `json:"texture_weight,omitempty" yaml:"texture_weight,omitempty" toml:"texture_weight,omitempty"`
	MotionWeight         *float64 `json:"motion_weight,omitempty" yaml:"motion_weight,omitempty" toml:"motion_weight,omitempty"`
	TextureNorm          *float64 `json:"texture_norm,omitempty" yaml:"texture_norm,omitempty" toml:"texture_norm,omitempty"`
	MotionComplexityNorm *float64 `json:"motion_complexity_norm,omitempty" yaml:"motion_complexity_norm,omitempty" toml:"motion_complexity_norm,omitempty"`
	NormalizeBitrate     *bool    `json:"normalize_bitrate,omitempty" yaml:"normalize_bitrate,omitempty" toml:"normalize_bitrate,omitempty"`
	BlockSize            *int     `json:"block_size,omitempty" yaml:"block_size,omitempty" toml:"block_size,omitempty"`
	QPMin                *int     `json:"qp_min,omitempty" yaml:"qp_min,omitempty" toml:"qp_min,omitempty"`
	QPMax                *int     `json:"qp_max,omitempty" yaml:"qp_max,omitempty" toml:"qp_max,omitempty"`

	// Encoder
	EncoderPath       *string  `json:"encoder_path,omitempty" yaml:"encoder_path,omitempty" toml:"encoder_path,omitempty"`
	EncoderPreset     *string  `json:"encoder_preset,omitempty" yaml:"encoder_preset,omitempty" toml:"encoder_preset,omitempty"`
	EncoderThreads    *int     `json:"encoder_threads,omitempty" yaml:"encoder_threads,omitempty" toml:"encoder_threads,omitempty"`
	EncoderArgs       *string  `json:"encoder_args,omitempty" yaml:"encoder_args,omitempty" toml:"encoder_args,omitempty"`                      // extra arguments, shell quoted
	EncoderVersion    *string  `json:"encoder_version,omitempty" yaml:"encoder_version,omitempty" toml:"encoder_version,omitempty"`             // semver constraint
	QPMapFlag         *string  `json:"qp_map_flag,omitempty" yaml:"qp_map_flag,omitempty" toml:"qp_map_flag,omitempty"`
	DetectorEndpoint  *string  `json:"detector_endpoint,omitempty" yaml:"detector_endpoint,omitempty" toml:"detector_endpoint,omitempty"`
	DetectorRateLimit *float64 `json:"detector_rate_limit,omitempty" yaml:"detector_rate_limit,omitempty" toml:"detector_rate_limit,omitempty"` // requests per second, 0 for none

	// Sweep
	QPValues []int `json:"qp_values,omitempty" yaml:"qp_values,omitempty" toml:"qp_values,omitempty"`
	Workers  *int  `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config with every field set to its
// built-in default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		CodingStructure:         ptrString("RA"),
		IntraPeriod:             ptrInt(32),
		GOPSize:                 ptrInt(16),
		QPOffsetList:            []int{1, 2, 3, 4},
		MaxFramesSinceDetection: ptrInt(10),
		MotionThreshold:         ptrFloat64(30.0),
		DivergenceThreshold:     ptrFloat64(1.0),
		VarianceThreshold:       ptrFloat64(400.0),
		MinBoxArea:              ptrFloat64(100.0),
		MaxDetectionRetries:     ptrInt(3),
		ConfidenceThreshold:     ptrFloat64(0.3),
		DetectorTimeout:         ptrString("30s"),
		MotionBlockSize:         ptrInt(16),
		MotionSearchRange:       ptrInt(8),
		MotionSmoothing:         ptrInt(1),
		BaseRingRatio:           ptrFloat64(0.2),
		RingMin:                 ptrFloat64(10),
		RingMax:                 ptrFloat64(50),
		RingMotionFactor:        ptrFloat64(0.3),
		RingMotionNorm:          ptrFloat64(10),
		RingMotionCap:           ptrFloat64(2),
		ImportanceWindow:        ptrInt(1),
		BaseAlphaCore:           ptrFloat64(8),
		BaseAlphaContext:        ptrFloat64(4),
		BaseAlphaBackground:     ptrFloat64(6),
		TextureWeight:           ptrFloat64(0.3),
		MotionWeight:            ptrFloat64(0.2),
		TextureNorm:             ptrFloat64(1000),
		MotionComplexityNorm:    ptrFloat64(50),
		NormalizeBitrate:        ptrBool(true),
		BlockSize:               ptrInt(128),
		QPMin:                   ptrInt(0),
		QPMax:                   ptrInt(51),
		QPValues:                []int{22, 27, 32, 37},
		EncoderPath:             ptrString("vvencapp"),
		EncoderPreset:           ptrString("medium"),
		EncoderThreads:          ptrInt(8),
		EncoderVersion:          ptrString(">= 1.7.0"),
		Workers:                 ptrInt(0),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON, YAML or TOML file.
// The file is validated to ensure it has a known extension and is under the
// max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml, .yml or .toml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.CodingStructure != nil {
		switch *c.CodingStructure {
		case "AI", "ALL_INTRA", "RA", "RANDOM_ACCESS", "LD", "LDP", "LOW_DELAY":
		default:
			return fmt.Errorf("unknown coding_structure %q", *c.CodingStructure)
		}
	}
	if c.IntraPeriod != nil && *c.IntraPeriod <= 0 {
		return fmt.Errorf("intra_period must be positive, got %d", *c.IntraPeriod)
	}
	if c.GOPSize != nil && *c.GOPSize <= 0 {
		return fmt.Errorf("gop_size must be positive, got %d", *c.GOPSize)
	}
	if c.MaxFramesSinceDetection != nil && *c.MaxFramesSinceDetection < 1 {
		return fmt.Errorf("max_frames_since_detection must be at least 1, got %d", *c.MaxFramesSinceDetection)
	}
	for name, v := range map[string]*float64{
		"motion_threshold":     c.MotionThreshold,
		"divergence_threshold": c.DivergenceThreshold,
		"variance_threshold":   c.VarianceThreshold,
		"min_box_area":         c.MinBoxArea,
		"ring_min":             c.RingMin,
		"ring_max":             c.RingMax,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.RingMin != nil && c.RingMax != nil && *c.RingMin > *c.RingMax {
		return fmt.Errorf("ring_min %f exceeds ring_max %f", *c.RingMin, *c.RingMax)
	}
	if c.RingMotionNorm != nil && *c.RingMotionNorm <= 0 {
		return fmt.Errorf("ring_motion_norm must be positive, got %f", *c.RingMotionNorm)
	}
	if c.RingMotionCap != nil && *c.RingMotionCap < 1 {
		return fmt.Errorf("ring_motion_cap must be at least 1, got %f", *c.RingMotionCap)
	}
	if c.TextureNorm != nil && *c.TextureNorm <= 0 {
		return fmt.Errorf("texture_norm must be positive, got %f", *c.TextureNorm)
	}
	if c.MotionComplexityNorm != nil && *c.MotionComplexityNorm <= 0 {
		return fmt.Errorf("motion_complexity_norm must be positive, got %f", *c.MotionComplexityNorm)
	}
	if c.BlockSize != nil && *c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", *c.BlockSize)
	}
	if c.MotionBlockSize != nil && *c.MotionBlockSize <= 0 {
		return fmt.Errorf("motion_block_size must be positive, got %d", *c.MotionBlockSize)
	}
	if c.MotionSmoothing != nil && *c.MotionSmoothing < 1 {
		return fmt.Errorf("motion_smoothing must be at least 1, got %d", *c.MotionSmoothing)
	}
	if c.ImportanceWindow != nil && *c.ImportanceWindow < 1 {
		return fmt.Errorf("importance_window must be at least 1, got %d", *c.ImportanceWindow)
	}
	if c.GetQPMin() < 0 || c.GetQPMax() > 51 || c.GetQPMin() > c.GetQPMax() {
		return fmt.Errorf("qp range [%d,%d] must lie within [0,51]", c.GetQPMin(), c.GetQPMax())
	}
	for _, qp := range c.QPValues {
		if qp < 0 || qp > 51 {
			return fmt.Errorf("qp_values entry %d outside [0,51]", qp)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.EncoderPreset != nil {
		switch *c.EncoderPreset {
		case "faster", "fast", "medium", "slow", "slower":
		default:
			return fmt.Errorf("unknown encoder_preset %q", *c.EncoderPreset)
		}
	}
	if c.EncoderThreads != nil && *c.EncoderThreads < 0 {
		return fmt.Errorf("encoder_threads must be non-negative, got %d", *c.EncoderThreads)
	}
	if c.EncoderVersion != nil && *c.EncoderVersion != "" {
		if _, err := semver.NewConstraint(*c.EncoderVersion); err != nil {
			return fmt.Errorf("invalid encoder_version %q: %w", *c.EncoderVersion, err)
		}
	}
	if c.DetectorRateLimit != nil && *c.DetectorRateLimit < 0 {
		return fmt.Errorf("detector_rate_limit must be non-negative, got %f", *c.DetectorRateLimit)
	}
	if c.DetectorTimeout != nil && *c.DetectorTimeout != "" {
		if _, err := time.ParseDuration(*c.DetectorTimeout); err != nil {
			return fmt.Errorf("invalid detector_timeout '%s': %w", *c.DetectorTimeout, err)
		}
	}
	return nil
}

// GetCodingStructure returns the coding_structure value or the default.
func (c *TuningConfig) GetCodingStructure() string {
	if c.CodingStructure == nil || *c.CodingStructure == "" {
		return "RA"
	}
	return *c.CodingStructure
}

// GetIntraPeriod returns the intra_period value or the default.
func (c *TuningConfig) GetIntraPeriod() int {
	if c.IntraPeriod == nil {
		return 32
	}
	return *c.IntraPeriod
}

// GetGOPSize returns the gop_size value or the default.
func (c *TuningConfig) GetGOPSize() int {
	if c.GOPSize == nil {
		return 16
	}
	return *c.GOPSize
}

// GetQPOffsetList returns the hierarchical-B QP offsets or the default.
func (c *TuningConfig) GetQPOffsetList() []int {
	if len(c.QPOffsetList) == 0 {
		return []int{1, 2, 3, 4}
	}
	return append([]int(nil), c.QPOffsetList...)
}

// GetMaxFramesSinceDetection returns the propagation ceiling or the default.
func (c *TuningConfig) GetMaxFramesSinceDetection() int {
	if c.MaxFramesSinceDetection == nil {
		return 10
	}
	return *c.MaxFramesSinceDetection
}

// GetMotionThreshold returns the motion_threshold value or the default.
func (c *TuningConfig) GetMotionThreshold() float64 {
	if c.MotionThreshold == nil {
		return 30.0
	}
	return *c.MotionThreshold
}

// GetDivergenceThreshold returns the divergence_threshold value or the default.
func (c *TuningConfig) GetDivergenceThreshold() float64 {
	if c.DivergenceThreshold == nil {
		return 1.0
	}
	return *c.DivergenceThreshold
}

// GetVarianceThreshold returns the variance_threshold value or the default.
func (c *TuningConfig) GetVarianceThreshold() float64 {
	if c.VarianceThreshold == nil {
		return 400.0
	}
	return *c.VarianceThreshold
}

// GetMinBoxArea returns the min_box_area value or the default.
func (c *TuningConfig) GetMinBoxArea() float64 {
	if c.MinBoxArea == nil {
		return 100.0
	}
	return *c.MinBoxArea
}

// GetMaxDetectionRetries returns the max_detection_retries value or the default.
func (c *TuningConfig) GetMaxDetectionRetries() int {
	if c.MaxDetectionRetries == nil {
		return 3
	}
	return *c.MaxDetectionRetries
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.3
	}
	return *c.ConfidenceThreshold
}

// GetDetectorTimeout parses and returns the DetectorTimeout as a time.Duration.
func (c *TuningConfig) GetDetectorTimeout() time.Duration {
	if c.DetectorTimeout == nil || *c.DetectorTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.DetectorTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetMotionBlockSize returns the motion_block_size value or the default.
func (c *TuningConfig) GetMotionBlockSize() int {
	if c.MotionBlockSize == nil {
		return 16
	}
	return *c.MotionBlockSize
}

// GetMotionSearchRange returns the motion_search_range value or the default.
func (c *TuningConfig) GetMotionSearchRange() int {
	if c.MotionSearchRange == nil {
		return 8
	}
	return *c.MotionSearchRange
}

// GetMotionSmoothing returns the motion_smoothing value or the default.
func (c *TuningConfig) GetMotionSmoothing() int {
	if c.MotionSmoothing == nil {
		return 1
	}
	return *c.MotionSmoothing
}

// GetImportanceWindow returns the importance_window value or the default.
func (c *TuningConfig) GetImportanceWindow() int {
	if c.ImportanceWindow == nil {
		return 1
	}
	return *c.ImportanceWindow
}

// GetBaseRingRatio returns the base_ring_ratio value or the default.
func (c *TuningConfig) GetBaseRingRatio() float64 {
	if c.BaseRingRatio == nil {
		return 0.2
	}
	return *c.BaseRingRatio
}

// GetRingMin returns the ring_min value or the default.
func (c *TuningConfig) GetRingMin() float64 {
	if c.RingMin == nil {
		return 10
	}
	return *c.RingMin
}

// GetRingMax returns the ring_max value or the default.
func (c *TuningConfig) GetRingMax() float64 {
	if c.RingMax == nil {
		return 50
	}
	return *c.RingMax
}

// GetRingMotionFactor returns the ring_motion_factor value or the default.
func (c *TuningConfig) GetRingMotionFactor() float64 {
	if c.RingMotionFactor == nil {
		return 0.3
	}
	return *c.RingMotionFactor
}

// GetRingMotionNorm returns the ring_motion_norm value or the default.
func (c *TuningConfig) GetRingMotionNorm() float64 {
	if c.RingMotionNorm == nil {
		return 10
	}
	return *c.RingMotionNorm
}

// GetRingMotionCap returns the ring_motion_cap value or the default.
func (c *TuningConfig) GetRingMotionCap() float64 {
	if c.RingMotionCap == nil {
		return 2
	}
	return *c.RingMotionCap
}

// GetBaseAlphaCore returns the base_alpha_core value or the default.
func (c *TuningConfig) GetBaseAlphaCore() float64 {
	if c.BaseAlphaCore == nil {
		return 8
	}
	return *c.BaseAlphaCore
}

// GetBaseAlphaContext returns the base_alpha_context value or the default.
func (c *TuningConfig) GetBaseAlphaContext() float64 {
	if c.BaseAlphaContext == nil {
		return 4
	}
	return *c.BaseAlphaContext
}

// GetBaseAlphaBackground returns the base_alpha_background value or the default.
func (c *TuningConfig) GetBaseAlphaBackground() float64 {
	if c.BaseAlphaBackground == nil {
		return 6
	}
	return *c.BaseAlphaBackground
}

// GetTextureWeight returns the texture_weight value or the default.
func (c *TuningConfig) GetTextureWeight() float64 {
	if c.TextureWeight == nil {
		return 0.3
	}
	return *c.TextureWeight
}

// GetMotionWeight returns the motion_weight value or the default.
func (c *TuningConfig) GetMotionWeight() float64 {
	if c.MotionWeight == nil {
		return 0.2
	}
	return *c.MotionWeight
}

// GetTextureNorm returns the texture_norm value or the default.
func (c *TuningConfig) GetTextureNorm() float64 {
	if c.TextureNorm == nil {
		return 1000
	}
	return *c.TextureNorm
}

// GetMotionComplexityNorm returns the motion_complexity_norm value or the default.
func (c *TuningConfig) GetMotionComplexityNorm() float64 {
	if c.MotionComplexityNorm == nil {
		return 50
	}
	return *c.MotionComplexityNorm
}

// GetNormalizeBitrate returns the normalize_bitrate value or the default.
func (c *TuningConfig) GetNormalizeBitrate() bool {
	if c.NormalizeBitrate == nil {
		return true
	}
	return *c.NormalizeBitrate
}

// GetBlockSize returns the block_size value or the default.
func (c *TuningConfig) GetBlockSize() int {
	if c.BlockSize == nil {
		return 128
	}
	return *c.BlockSize
}

// GetQPMin returns the qp_min value or the default.
func (c *TuningConfig) GetQPMin() int {
	if c.QPMin == nil {
		return 0
	}
	return *c.QPMin
}

// GetQPMax returns the qp_max value or the default.
func (c *TuningConfig) GetQPMax() int {
	if c.QPMax == nil {
		return 51
	}
	return *c.QPMax
}

// GetQPValues returns the base QPs of the sweep or the default.
func (c *TuningConfig) GetQPValues() []int {
	if len(c.QPValues) == 0 {
		return []int{22, 27, 32, 37}
	}
	return append([]int(nil), c.QPValues...)
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetEncoderPath returns the encoder binary or the default.
func (c *TuningConfig) GetEncoderPath() string {
	if c.EncoderPath == nil || *c.EncoderPath == "" {
		return "vvencapp"
	}
	return *c.EncoderPath
}

// GetEncoderPreset returns the encoder preset or the default.
func (c *TuningConfig) GetEncoderPreset() string {
	if c.EncoderPreset == nil || *c.EncoderPreset == "" {
		return "medium"
	}
	return *c.EncoderPreset
}

// GetEncoderThreads returns the encoder thread count or the default.
func (c *TuningConfig) GetEncoderThreads() int {
	if c.EncoderThreads == nil {
		return 8
	}
	return *c.EncoderThreads
}

// GetEncoderArgs returns the extra encoder arguments, unsplit.
func (c *TuningConfig) GetEncoderArgs() string {
	if c.EncoderArgs == nil {
		return ""
	}
	return *c.EncoderArgs
}

// GetEncoderVersion returns the accepted encoder version range or the default.
func (c *TuningConfig) GetEncoderVersion() string {
	if c.EncoderVersion == nil {
		return ">= 1.7.0"
	}
	return *c.EncoderVersion
}

// GetQPMapFlag returns the encoder option that takes a QP map file. Empty
// means the encoder build has none.
func (c *TuningConfig) GetQPMapFlag() string {
	if c.QPMapFlag == nil {
		return ""
	}
	return *c.QPMapFlag
}

// GetDetectorEndpoint returns the HTTP detector URL; empty selects the
// built-in threshold detector.
func (c *TuningConfig) GetDetectorEndpoint() string {
	if c.DetectorEndpoint == nil {
		return ""
	}
	return *c.DetectorEndpoint
}

// GetDetectorRateLimit returns the detector request rate; 0 is unlimited.
func (c *TuningConfig) GetDetectorRateLimit() float64 {
	if c.DetectorRateLimit == nil {
		return 0
	}
	return *c.DetectorRateLimit
}
