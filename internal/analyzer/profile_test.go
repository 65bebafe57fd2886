package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anime-shed/stripreader/internal/strategy"
	"gopkg.in/yaml.v3"
)

func TestBuiltinProfiles(t *testing.T) {
	set := DefaultProfiles()
	if got := set.Names(); len(got) != 2 || got[0] != ProfileSensitive || got[1] != ProfileStandard {
		t.Fatalf("Names() = %v", got)
	}
	for _, name := range set.Names() {
		p, err := set.Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != name {
			t.Errorf("profile %q reports name %q", name, p.Name)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("built-in profile invalid: %v", err)
		}
		if p.Quality.Enabled() {
			t.Errorf("profile %q: quality gate should be a pass-through", name)
		}
	}

	std := StandardProfile()
	if std.Detection.Mode != strategy.ModeEdges || std.Detection.WorkingWidth != 0 {
		t.Errorf("standard detection = %+v", std.Detection)
	}
	if std.Thresholds.NegativeColor != 0.01 || std.Layout.TestFraction != 0.5 {
		t.Errorf("standard tuning = %+v %+v", std.Thresholds, std.Layout)
	}

	sens := SensitiveProfile()
	if sens.Detection.Mode != strategy.ModeAdaptive || sens.Detection.WorkingWidth != 500 {
		t.Errorf("sensitive detection = %+v", sens.Detection)
	}
	if sens.Thresholds.PositiveColor != 0.02 || sens.Layout.BandHalfHeightFraction != 0.15 {
		t.Errorf("sensitive tuning = %+v %+v", sens.Thresholds, sens.Layout)
	}
}

func TestProfileSet_GetUnknown(t *testing.T) {
	_, err := DefaultProfiles().Get("nope")
	if err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Errorf("expected unknown profile error, got %v", err)
	}
}

func TestProfile_WithCopies(t *testing.T) {
	base := StandardProfile()
	p := base.WithMode(strategy.ModeAdaptive).WithWorkingWidth(640)

	if p.Detection.Mode != strategy.ModeAdaptive || p.Detection.WorkingWidth != 640 {
		t.Errorf("overrides not applied: %+v", p.Detection)
	}
	if base.Detection.Mode != strategy.ModeEdges || base.Detection.WorkingWidth != 0 {
		t.Error("With* must not modify the receiver")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("switched profile should stay valid: %v", err)
	}
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
		want   string
	}{
		{"unknown mode", func(p *Profile) { p.Detection.Mode = "sobel" }, "unsupported detection mode"},
		{"even block", func(p *Profile) { p.Detection.Mode = strategy.ModeAdaptive; p.Detection.BlockSize = 10 }, "block size"},
		{"empty aspect interval", func(p *Profile) { p.Detection.MinAspect = 20 }, "aspect interval"},
		{"zero epsilon", func(p *Profile) { p.Detection.ApproxEpsilon = 0 }, "epsilon"},
		{"negative width", func(p *Profile) { p.Detection.WorkingWidth = -1 }, "working width"},
		{"fraction above one", func(p *Profile) { p.Layout.TestFraction = 1.5 }, "test_fraction"},
		{"threshold below zero", func(p *Profile) { p.Thresholds.ControlEdge = -0.1 }, "control_edge"},
		{"negative above positive", func(p *Profile) { p.Thresholds.NegativeColor = 0.2 }, "negative_color"},
		{"hue out of range", func(p *Profile) { p.LineColor.HueMax = 200 }, "hue window"},
		{"inverted band edges", func(p *Profile) { p.BandEdges.Low = 200 }, "band edge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := StandardProfile()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestParseProfiles_Overrides(t *testing.T) {
	doc := `
profiles:
  lowlight:
    base: sensitive
    detection:
      working_width: 800
    thresholds:
      negative_color: 0.002
  standard:
    layout:
      test_fraction: 0.55
  strict:
    thresholds:
      positive_color: 0.1
    quality:
      blur_check: true
`
	set, err := ParseProfiles([]byte(doc))
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}

	low, err := set.Get("lowlight")
	if err != nil {
		t.Fatal(err)
	}
	sens := SensitiveProfile()
	if low.Name != "lowlight" {
		t.Errorf("name = %q", low.Name)
	}
	if low.Detection.WorkingWidth != 800 || low.Thresholds.NegativeColor != 0.002 {
		t.Errorf("overrides lost: %+v %+v", low.Detection, low.Thresholds)
	}
	if low.Detection.Mode != sens.Detection.Mode || low.Detection.MinAspect != sens.Detection.MinAspect {
		t.Errorf("detection fields not inherited from base: %+v", low.Detection)
	}
	if low.Thresholds.ControlColor != sens.Thresholds.ControlColor || low.Layout != sens.Layout {
		t.Errorf("unset fields must keep base values: %+v %+v", low.Thresholds, low.Layout)
	}

	std, _ := set.Get(ProfileStandard)
	if std.Layout.TestFraction != 0.55 || std.Layout.ControlFraction != 0.25 {
		t.Errorf("retuned standard layout = %+v", std.Layout)
	}

	strict, _ := set.Get("strict")
	if strict.Detection != StandardProfile().Detection {
		t.Errorf("strict should default to the standard base: %+v", strict.Detection)
	}
	if !strict.Quality.BlurCheck || strict.Quality.MinLaplacianVariance != 100 {
		t.Errorf("quality override = %+v", strict.Quality)
	}

	if _, err := set.Get(ProfileSensitive); err != nil {
		t.Error("built-ins must stay available")
	}
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "profiles: [", "failed to parse"},
		{"unknown base", "profiles:\n  x:\n    base: nope\n", "unknown profile"},
		{"cycle", "profiles:\n  a:\n    base: b\n  b:\n    base: a\n", "cyclic"},
		{"invalid result", "profiles:\n  x:\n    detection:\n      mode: hough\n", "unsupported detection mode"},
		{"self base", "profiles:\n  x:\n    base: x\n", "own base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseProfiles() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestParseProfiles_ChainedBase(t *testing.T) {
	doc := `
profiles:
  b:
    base: a
    layout:
      control_fraction: 0.2
  a:
    base: sensitive
    detection:
      working_width: 640
`
	set, err := ParseProfiles([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := set.Get("b")
	if b.Detection.WorkingWidth != 640 || b.Layout.ControlFraction != 0.2 || b.Detection.Mode != strategy.ModeAdaptive {
		t.Errorf("chained profile = %+v %+v", b.Detection, b.Layout)
	}
}

func TestLoadProfiles(t *testing.T) {
	set, err := LoadProfiles("")
	if err != nil || len(set) != 2 {
		t.Fatalf("LoadProfiles(\"\") = %v, %v", set, err)
	}

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  wide:\n    detection:\n      max_aspect: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err = LoadProfiles(path)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := set.Get("wide"); p.Detection.MaxAspect != 30 {
		t.Errorf("max_aspect = %v", p.Detection.MaxAspect)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestProfileSet_MarshalYAMLIsReadable(t *testing.T) {
	out, err := yaml.Marshal(DefaultProfiles())
	if err != nil {
		t.Fatal(err)
	}
	set, err := ParseProfiles(out)
	if err != nil {
		t.Fatalf("marshalled profiles do not parse: %v\n%s", err, out)
	}
	if got, _ := set.Get(ProfileSensitive); got != SensitiveProfile() {
		t.Errorf("sensitive profile changed through YAML: %+v", got)
	}
}
