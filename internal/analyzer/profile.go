package analyzer

import (
	"fmt"
	"os"
	"sort"

	"github.com/anime-shed/stripreader/internal/strategy"
	"github.com/anime-shed/stripreader/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Built-in profile names
const (
	ProfileStandard  = "standard"
	ProfileSensitive = "sensitive"
)

// DetectionParams controls the strip locator
type DetectionParams struct {
	Mode strategy.Mode `yaml:"mode" json:"mode"`

	// Edge mode
	CannyLow  float64 `yaml:"canny_low" json:"canny_low"`
	CannyHigh float64 `yaml:"canny_high" json:"canny_high"`

	// Adaptive mode
	BlockSize int     `yaml:"block_size" json:"block_size"`
	Offset    float64 `yaml:"offset" json:"offset"`

	// WorkingWidth resizes the image before detection; 0 keeps it as is
	WorkingWidth int `yaml:"working_width" json:"working_width"`

	// ApproxEpsilon is the polygon tolerance as a fraction of the perimeter
	ApproxEpsilon float64 `yaml:"approx_epsilon" json:"approx_epsilon"`

	// Open interval on width/height and strict minimum sizes, in working pixels
	MinAspect float64 `yaml:"min_aspect" json:"min_aspect"`
	MaxAspect float64 `yaml:"max_aspect" json:"max_aspect"`
	MinWidth  int     `yaml:"min_width" json:"min_width"`
	MinHeight int     `yaml:"min_height" json:"min_height"`
}

// StrategyParams returns the mask strategy settings
func (p DetectionParams) StrategyParams() strategy.Params {
	return strategy.Params{
		CannyLow:  p.CannyLow,
		CannyHigh: p.CannyHigh,
		BlockSize: p.BlockSize,
		Offset:    p.Offset,
	}
}

// Layout positions the bands as fractions of the strip height
type Layout struct {
	ControlFraction        float64 `yaml:"control_fraction" json:"control_fraction"`
	TestFraction           float64 `yaml:"test_fraction" json:"test_fraction"`
	BandHalfHeightFraction float64 `yaml:"band_half_height_fraction" json:"band_half_height_fraction"`
}

// ColorWindow is an inclusive HSV box on the 8-bit scale (H 0-180, S/V 0-255)
type ColorWindow struct {
	HueMin float64 `yaml:"hue_min" json:"hue_min"`
	HueMax float64 `yaml:"hue_max" json:"hue_max"`
	SatMin float64 `yaml:"sat_min" json:"sat_min"`
	SatMax float64 `yaml:"sat_max" json:"sat_max"`
	ValMin float64 `yaml:"val_min" json:"val_min"`
	ValMax float64 `yaml:"val_max" json:"val_max"`
}

// Contains reports whether an 8-bit HSV triple lies in the window
func (w ColorWindow) Contains(h, s, v float64) bool {
	return h >= w.HueMin && h <= w.HueMax &&
		s >= w.SatMin && s <= w.SatMax &&
		v >= w.ValMin && v <= w.ValMax
}

// EdgeThresholds are the hysteresis bounds of the band edge detector
type EdgeThresholds struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// DecisionThresholds are the cutoffs of the decision rules
type DecisionThresholds struct {
	ControlColor  float64 `yaml:"control_color" json:"control_color"`
	ControlEdge   float64 `yaml:"control_edge" json:"control_edge"`
	PositiveColor float64 `yaml:"positive_color" json:"positive_color"`
	PositiveEdge  float64 `yaml:"positive_edge" json:"positive_edge"`
	NegativeColor float64 `yaml:"negative_color" json:"negative_color"`
}

// Profile is a named bundle of every tunable of the pipeline
type Profile struct {
	Name       string                       `yaml:"-" json:"name"`
	Detection  DetectionParams              `yaml:"detection" json:"detection"`
	Layout     Layout                       `yaml:"layout" json:"layout"`
	LineColor  ColorWindow                  `yaml:"line_color" json:"line_color"`
	BandEdges  EdgeThresholds               `yaml:"band_edges" json:"band_edges"`
	Thresholds DecisionThresholds           `yaml:"thresholds" json:"thresholds"`
	Quality    validation.QualityThresholds `yaml:"quality" json:"quality"`
}

// DefaultLineColor matches pink and red test lines
func DefaultLineColor() ColorWindow {
	return ColorWindow{HueMin: 140, HueMax: 180, SatMin: 50, SatMax: 255, ValMin: 50, ValMax: 255}
}

// StandardProfile is tuned for full-resolution photos: edge detection on the
// original image and a long, thin strip.
func StandardProfile() Profile {
	return Profile{
		Name: ProfileStandard,
		Detection: DetectionParams{
			Mode:          strategy.ModeEdges,
			CannyLow:      50,
			CannyHigh:     150,
			BlockSize:     11,
			Offset:        2,
			WorkingWidth:  0,
			ApproxEpsilon: 0.02,
			MinAspect:     5,
			MaxAspect:     20,
			MinWidth:      50,
			MinHeight:     5,
		},
		Layout:    Layout{ControlFraction: 0.25, TestFraction: 0.5, BandHalfHeightFraction: 0.1},
		LineColor: DefaultLineColor(),
		BandEdges: EdgeThresholds{Low: 50, High: 150},
		Thresholds: DecisionThresholds{
			ControlColor:  0.05,
			ControlEdge:   0.01,
			PositiveColor: 0.05,
			PositiveEdge:  0.01,
			NegativeColor: 0.01,
		},
		Quality: validation.DefaultQualityThresholds(),
	}
}

// SensitiveProfile is tuned for uneven lighting and faint lines: adaptive
// thresholding at a fixed working width and lower decision cutoffs.
func SensitiveProfile() Profile {
	return Profile{
		Name: ProfileSensitive,
		Detection: DetectionParams{
			Mode:          strategy.ModeAdaptive,
			CannyLow:      50,
			CannyHigh:     150,
			BlockSize:     11,
			Offset:        2,
			WorkingWidth:  500,
			ApproxEpsilon: 0.02,
			MinAspect:     2,
			MaxAspect:     10,
			MinWidth:      100,
			MinHeight:     20,
		},
		Layout:    Layout{ControlFraction: 0.3, TestFraction: 0.6, BandHalfHeightFraction: 0.15},
		LineColor: DefaultLineColor(),
		BandEdges: EdgeThresholds{Low: 50, High: 150},
		Thresholds: DecisionThresholds{
			ControlColor:  0.03,
			ControlEdge:   0.005,
			PositiveColor: 0.02,
			PositiveEdge:  0.005,
			NegativeColor: 0.005,
		},
		Quality: validation.DefaultQualityThresholds(),
	}
}

// WithMode returns a copy using the given detection mode
func (p Profile) WithMode(mode strategy.Mode) Profile {
	p.Detection.Mode = mode
	return p
}

// WithWorkingWidth returns a copy resizing to width before detection
func (p Profile) WithWorkingWidth(width int) Profile {
	p.Detection.WorkingWidth = width
	return p
}

// WithLayout returns a copy using the given band layout
func (p Profile) WithLayout(layout Layout) Profile {
	p.Layout = layout
	return p
}

// WithThresholds returns a copy using the given decision thresholds
func (p Profile) WithThresholds(t DecisionThresholds) Profile {
	p.Thresholds = t
	return p
}

// WithQuality returns a copy using the given quality gate settings
func (p Profile) WithQuality(q validation.QualityThresholds) Profile {
	p.Quality = q
	return p
}

// Validate checks that the profile describes a runnable pipeline
func (p Profile) Validate() error {
	d := p.Detection
	if _, err := strategy.ForMode(d.Mode, d.StrategyParams()); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if d.WorkingWidth < 0 {
		return fmt.Errorf("profile %q: working width must not be negative", p.Name)
	}
	if d.ApproxEpsilon <= 0 {
		return fmt.Errorf("profile %q: approx epsilon must be positive", p.Name)
	}
	if d.MinAspect <= 0 || d.MaxAspect <= d.MinAspect {
		return fmt.Errorf("profile %q: aspect interval (%g, %g) is empty", p.Name, d.MinAspect, d.MaxAspect)
	}
	if d.MinWidth < 0 || d.MinHeight < 0 {
		return fmt.Errorf("profile %q: minimum strip size must not be negative", p.Name)
	}

	fractions := map[string]float64{
		"control_fraction":          p.Layout.ControlFraction,
		"test_fraction":             p.Layout.TestFraction,
		"band_half_height_fraction": p.Layout.BandHalfHeightFraction,
		"control_color":             p.Thresholds.ControlColor,
		"control_edge":              p.Thresholds.ControlEdge,
		"positive_color":            p.Thresholds.PositiveColor,
		"positive_edge":             p.Thresholds.PositiveEdge,
		"negative_color":            p.Thresholds.NegativeColor,
	}
	for name, v := range fractions {
		if v < 0 || v > 1 {
			return fmt.Errorf("profile %q: %s must be within [0,1] (got %g)", p.Name, name, v)
		}
	}
	if p.Thresholds.NegativeColor > p.Thresholds.PositiveColor {
		return fmt.Errorf("profile %q: negative_color must not exceed positive_color", p.Name)
	}

	c := p.LineColor
	if c.HueMin < 0 || c.HueMax > 180 || c.HueMin > c.HueMax {
		return fmt.Errorf("profile %q: hue window must lie within [0,180]", p.Name)
	}
	if c.SatMin < 0 || c.SatMax > 255 || c.SatMin > c.SatMax ||
		c.ValMin < 0 || c.ValMax > 255 || c.ValMin > c.ValMax {
		return fmt.Errorf("profile %q: saturation and value windows must lie within [0,255]", p.Name)
	}
	if p.BandEdges.Low < 0 || p.BandEdges.High < p.BandEdges.Low {
		return fmt.Errorf("profile %q: band edge thresholds must satisfy 0 <= low <= high", p.Name)
	}
	return nil
}

// ProfileSet indexes profiles by name
type ProfileSet map[string]Profile

// DefaultProfiles returns the built-in profiles
func DefaultProfiles() ProfileSet {
	return ProfileSet{
		ProfileStandard:  StandardProfile(),
		ProfileSensitive: SensitiveProfile(),
	}
}

// Get looks a profile up by name
func (s ProfileSet) Get(name string) (Profile, error) {
	p, ok := s[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, s.Names())
	}
	return p, nil
}

// Names returns the profile names in sorted order
func (s ProfileSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalYAML writes the set in the same layout ParseProfiles reads
func (s ProfileSet) MarshalYAML() (interface{}, error) {
	return profileFile{Profiles: map[string]Profile(s)}, nil
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

type rawProfileFile struct {
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

type profileBase struct {
	Base string `yaml:"base"`
}

// ParseProfiles reads a YAML document of the form
//
//	profiles:
//	  lowlight:
//	    base: sensitive
//	    detection:
//	      working_width: 800
//
// on top of the built-in profiles. Each entry starts from its base profile
// and overrides only the fields it sets. The base defaults to the built-in of
// the same name, or to standard.
func ParseProfiles(data []byte) (ProfileSet, error) {
	var raw rawProfileFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	builtins := DefaultProfiles()
	set := DefaultProfiles()
	resolved := make(map[string]bool, len(raw.Profiles))
	resolving := make(map[string]bool)

	var resolve func(name string) error
	resolve = func(name string) error {
		if resolved[name] {
			return nil
		}
		if resolving[name] {
			return fmt.Errorf("profile %q has a cyclic base", name)
		}
		resolving[name] = true
		defer delete(resolving, name)

		node := raw.Profiles[name]
		var base profileBase
		if err := node.Decode(&base); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if base.Base == "" {
			base.Base = ProfileStandard
			if _, ok := builtins[name]; ok {
				base.Base = name
			}
		}

		var start Profile
		switch {
		case base.Base == name:
			b, ok := builtins[name]
			if !ok {
				return fmt.Errorf("profile %q cannot be its own base", name)
			}
			start = b
		default:
			if _, ok := raw.Profiles[base.Base]; ok {
				if err := resolve(base.Base); err != nil {
					return err
				}
			}
			b, err := set.Get(base.Base)
			if err != nil {
				return fmt.Errorf("profile %q: %w", name, err)
			}
			start = b
		}

		if err := node.Decode(&start); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		start.Name = name
		if err := start.Validate(); err != nil {
			return err
		}
		set[name] = start
		resolved[name] = true
		return nil
	}

	for _, name := range sortedKeys(raw.Profiles) {
		if err := resolve(name); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadProfiles reads a profile file; an empty path yields the built-ins
func LoadProfiles(path string) (ProfileSet, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return ParseProfiles(data)
}

func sortedKeys(m map[string]yaml.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
