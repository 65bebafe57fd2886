package analyzer

import (
	"image"
	"testing"

	"github.com/disintegration/imaging"
)

func TestExtractBands_StandardLayout(t *testing.T) {
	img := imaging.New(400, 200, image.White)
	strip := image.Rect(50, 70, 350, 120) // h = 50

	control, test := ExtractBands(img, strip, StandardProfile().Layout)

	// center 12, half 5 -> rows 7..17
	if want := image.Rect(50, 77, 350, 87); control.Bounds != want {
		t.Errorf("control band = %v, want %v", control.Bounds, want)
	}
	// center 25, half 5 -> rows 20..30
	if want := image.Rect(50, 90, 350, 100); test.Bounds != want {
		t.Errorf("test band = %v, want %v", test.Bounds, want)
	}
	if control.Kind != BandControl || test.Kind != BandTest {
		t.Errorf("unexpected kinds %s/%s", control.Kind, test.Kind)
	}
	if control.Pixels.Bounds() != control.Bounds {
		t.Errorf("band pixels cover %v, want %v", control.Pixels.Bounds(), control.Bounds)
	}
}

func TestExtractBands_ClampsToStrip(t *testing.T) {
	img := imaging.New(100, 100, image.White)
	strip := image.Rect(10, 10, 90, 50) // h = 40

	layout := Layout{ControlFraction: 0.05, TestFraction: 0.95, BandHalfHeightFraction: 0.25}
	control, test := ExtractBands(img, strip, layout)

	// center 2, half 10 -> [-8, 12) clamped to [0, 12)
	if want := image.Rect(10, 10, 90, 22); control.Bounds != want {
		t.Errorf("control band = %v, want %v", control.Bounds, want)
	}
	// center 38, half 10 -> [28, 48) clamped to [28, 40)
	if want := image.Rect(10, 38, 90, 50); test.Bounds != want {
		t.Errorf("test band = %v, want %v", test.Bounds, want)
	}
}

func TestExtractBands_DegenerateStrip(t *testing.T) {
	img := imaging.New(100, 100, image.White)
	control, test := ExtractBands(img, image.Rect(0, 0, 80, 4), StandardProfile().Layout)

	// half = int(0.4) = 0
	if !control.Empty() || !test.Empty() {
		t.Fatalf("expected empty bands, got %v and %v", control.Bounds, test.Bounds)
	}
	if s := AnalyzeBand(test, DefaultLineColor(), EdgeThresholds{50, 150}); s != (BandSignal{}) {
		t.Errorf("empty band signal = %+v, want zero", s)
	}
}

func TestExtractBands_StripOutsideImage(t *testing.T) {
	img := imaging.New(50, 50, image.White)
	control, test := ExtractBands(img, image.Rect(60, 60, 200, 100), StandardProfile().Layout)
	if !control.Empty() || !test.Empty() {
		t.Error("strip outside the image should produce empty bands")
	}
}

func TestDegenerateTestBand_NeverPositive(t *testing.T) {
	th := StandardProfile().Thresholds
	empty := BandSignal{}

	if got := Decide(BandSignal{0.3, 0.2}, empty, th).Result; got != ResultNegative {
		t.Errorf("valid control with empty test band = %s, want Negative", got)
	}
	if got := Decide(empty, empty, th).Result; got != ResultInvalid {
		t.Errorf("empty control band = %s, want Invalid", got)
	}
}
