package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/testutil"
	"github.com/anime-shed/stripreader/pkg/validation"
	"github.com/disintegration/imaging"
)

func TestAnalyze_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		control bool
		test    bool
		profile Profile
		want    Result
	}{
		{"positive standard", true, true, StandardProfile(), ResultPositive},
		{"negative standard", true, false, StandardProfile(), ResultNegative},
		{"invalid standard", false, true, StandardProfile(), ResultInvalid},
		{"invalid without lines", false, false, StandardProfile(), ResultInvalid},
		{"invalid sensitive", false, false, SensitiveProfile(), ResultInvalid},
	}

	a := NewStripAnalyzer(nil, nil)
	defer a.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.Analyze(testutil.DrawStrip(tt.control, tt.test), tt.profile)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if out.Decision.Result != tt.want {
				t.Errorf("result = %s (control %+v, test %+v), want %s",
					out.Decision.Result, out.ControlSignal, out.TestSignal, tt.want)
			}
			if out.Profile != tt.profile.Name {
				t.Errorf("profile = %q", out.Profile)
			}
		})
	}
}

func TestAnalyze_NegativeHasZeroConfidence(t *testing.T) {
	out, err := NewStripAnalyzer(nil, nil).Analyze(testutil.DrawStrip(true, false), StandardProfile())
	if err != nil {
		t.Fatal(err)
	}
	if out.TestSignal.ColorRatio != 0 || out.Decision.Confidence != 0 {
		t.Errorf("gray test band should have no line colour: %+v", out.TestSignal)
	}
	if out.ControlSignal.ColorRatio < 0.3 || out.ControlSignal.EdgeDensity < 0.05 {
		t.Errorf("control signal too weak: %+v", out.ControlSignal)
	}
}

func TestAnalyze_StripNotDetected(t *testing.T) {
	out, err := NewStripAnalyzer(nil, nil).Analyze(testutil.Blank(), StandardProfile())
	if out != nil {
		t.Error("no outcome expected when detection fails")
	}
	rec := ErrorRecord(err)
	if rec.Status != "error" || rec.Error != "Test strip not detected" || rec.Kind != "detection" {
		t.Errorf("record = %+v", rec)
	}
}

func TestAnalyze_EmptyImage(t *testing.T) {
	_, err := NewStripAnalyzer(nil, nil).Analyze(image.NewNRGBA(image.Rect(0, 0, 0, 0)), StandardProfile())
	if !apperrors.IsType(err, apperrors.ErrorTypeInput) {
		t.Errorf("expected input error, got %v", err)
	}
}

func TestAnalyze_InvalidProfile(t *testing.T) {
	p := StandardProfile()
	p.Detection.Mode = "hough"
	_, err := NewStripAnalyzer(nil, nil).Analyze(testutil.DrawStrip(true, true), p)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAnalyze_QualityGateRunsBeforeDetection(t *testing.T) {
	q := validation.DefaultQualityThresholds()
	q.BlurCheck = true
	p := StandardProfile().WithQuality(q)

	// a blank image would fail detection; the gate must answer first
	_, err := NewStripAnalyzer(nil, nil).Analyze(testutil.Blank(), p)
	if !apperrors.IsType(err, apperrors.ErrorTypeQuality) {
		t.Fatalf("expected quality error, got %v", err)
	}
	if rec := ErrorRecord(err); rec.Error != apperrors.MsgImageTooBlurry {
		t.Errorf("error = %q", rec.Error)
	}
}

func TestAnalyze_DoesNotModifyInput(t *testing.T) {
	img := testutil.DrawStrip(true, true)
	before := append([]uint8(nil), img.Pix...)
	if _, err := NewStripAnalyzer(nil, nil).Analyze(img, SensitiveProfile()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("input pixels changed")
	}
}

func TestAnalyze_AcceptsOffsetImages(t *testing.T) {
	full := testutil.DrawStrip(true, true)
	shifted := &image.NRGBA{
		Pix:    full.Pix,
		Stride: full.Stride,
		Rect:   full.Rect.Add(image.Pt(30, 40)),
	}
	out, err := NewStripAnalyzer(nil, nil).Analyze(shifted, StandardProfile())
	if err != nil {
		t.Fatal(err)
	}
	if out.Decision.Result != ResultPositive {
		t.Errorf("result = %s", out.Decision.Result)
	}
}

func TestAnalyze_RecoversFromPanics(t *testing.T) {
	a := NewStripAnalyzer(panicLocator{}, nil)
	out, err := a.Analyze(testutil.DrawStrip(true, true), StandardProfile())
	if out != nil || !apperrors.IsType(err, apperrors.ErrorTypeInternal) {
		t.Errorf("expected internal error, got %v, %v", out, err)
	}
}

func TestAnalyze_LocatorErrorsPassThrough(t *testing.T) {
	want := apperrors.NewDetectionError("custom", nil)
	_, err := NewStripAnalyzer(stubLocator{err: want}, nil).Analyze(testutil.DrawStrip(true, true), StandardProfile())
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	data, err := testutil.EncodePNG(testutil.DrawStrip(true, true))
	if err != nil {
		t.Fatal(err)
	}

	run := func() []byte {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		out, err := NewStripAnalyzer(nil, nil).Analyze(img, SensitiveProfile())
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(BuildRecord(out))
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	first, second := run(), run()
	if !bytes.Equal(first, second) {
		t.Errorf("records differ:\n%s\n%s", first, second)
	}
}

func TestToNRGBA(t *testing.T) {
	n := imaging.New(4, 4, color.White)
	if toNRGBA(n) != n {
		t.Error("an origin-anchored NRGBA should be used as is")
	}
	g := image.NewGray(image.Rect(2, 2, 6, 6))
	if got := toNRGBA(g); got.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("converted bounds = %v", got.Bounds())
	}
}

type panicLocator struct{}

func (panicLocator) Locate(image.Image, DetectionParams) (image.Rectangle, error) {
	panic("index out of range")
}

func (panicLocator) Name() string { return "panic" }
