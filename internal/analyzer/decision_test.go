package analyzer

import (
	"testing"
)

func TestDecide_Rules(t *testing.T) {
	th := StandardProfile().Thresholds
	valid := BandSignal{ColorRatio: 0.3, EdgeDensity: 0.2}

	tests := []struct {
		name     string
		control  BandSignal
		test     BandSignal
		want     Result
		wantConf float64
	}{
		{"negative", valid, BandSignal{0.001, 0.0}, ResultNegative, 0.001},
		{"positive", valid, BandSignal{0.08, 0.05}, ResultPositive, 0.08},
		{"unclear between cutoffs", valid, BandSignal{0.03, 0.05}, ResultUnclear, 0.03},
		{"strong colour without edges is unclear", valid, BandSignal{0.08, 0.0}, ResultUnclear, 0.08},
		{"faint control colour", BandSignal{0.01, 0.2}, BandSignal{0.08, 0.05}, ResultInvalid, 0},
		{"control without edges", BandSignal{0.3, 0.001}, BandSignal{0.08, 0.05}, ResultInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.control, tt.test, th)
			if got.Result != tt.want || got.Confidence != tt.wantConf {
				t.Errorf("Decide = %+v, want %s/%v", got, tt.want, tt.wantConf)
			}
		})
	}
}

func TestDecide_BoundariesAreStrict(t *testing.T) {
	th := DecisionThresholds{
		ControlColor:  0.05,
		ControlEdge:   0.01,
		PositiveColor: 0.05,
		PositiveEdge:  0.01,
		NegativeColor: 0.01,
	}
	valid := BandSignal{ColorRatio: 0.3, EdgeDensity: 0.2}

	tests := []struct {
		name    string
		control BandSignal
		test    BandSignal
		want    Result
	}{
		{"control colour at threshold is valid", BandSignal{0.05, 0.2}, BandSignal{0, 0}, ResultNegative},
		{"control edge at threshold is valid", BandSignal{0.3, 0.01}, BandSignal{0, 0}, ResultNegative},
		{"test colour at positive threshold is not positive", valid, BandSignal{0.05, 0.2}, ResultUnclear},
		{"test edge at positive threshold is not positive", valid, BandSignal{0.08, 0.01}, ResultUnclear},
		{"test colour at negative threshold is not negative", valid, BandSignal{0.01, 0}, ResultUnclear},
		{"just below negative threshold", valid, BandSignal{0.0099, 0}, ResultNegative},
		{"just above positive threshold", valid, BandSignal{0.0501, 0.0101}, ResultPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.control, tt.test, th); got.Result != tt.want {
				t.Errorf("Decide = %s, want %s", got.Result, tt.want)
			}
		})
	}
}

func TestDecide_MonotoneInTestColour(t *testing.T) {
	for _, p := range []Profile{StandardProfile(), SensitiveProfile()} {
		t.Run(p.Name, func(t *testing.T) {
			control := BandSignal{ColorRatio: 0.3, EdgeDensity: 0.2}
			rank := map[Result]int{ResultNegative: 0, ResultUnclear: 1, ResultPositive: 2}

			last := -1
			seen := map[Result]bool{}
			for i := 0; i <= 200; i++ {
				ratio := float64(i) * 0.0005
				d := Decide(control, BandSignal{ColorRatio: ratio, EdgeDensity: 0.05}, p.Thresholds)
				r, ok := rank[d.Result]
				if !ok {
					t.Fatalf("ratio %v gave %s with a valid control line", ratio, d.Result)
				}
				if r < last {
					t.Fatalf("result went backwards at ratio %v: %s", ratio, d.Result)
				}
				last = r
				seen[d.Result] = true
			}
			for _, want := range []Result{ResultNegative, ResultUnclear, ResultPositive} {
				if !seen[want] {
					t.Errorf("sweep never produced %s", want)
				}
			}
		})
	}
}

func TestDecide_Total(t *testing.T) {
	th := SensitiveProfile().Thresholds
	values := []float64{0, 0.001, 0.005, 0.01, 0.02, 0.03, 0.05, 0.1, 1}
	known := map[Result]bool{ResultPositive: true, ResultNegative: true, ResultUnclear: true, ResultInvalid: true}

	for _, cc := range values {
		for _, ce := range values {
			for _, tc := range values {
				for _, te := range values {
					d := Decide(BandSignal{cc, ce}, BandSignal{tc, te}, th)
					if !known[d.Result] {
						t.Fatalf("unexpected result %q", d.Result)
					}
					if d.Result == ResultInvalid && d.Confidence != 0 {
						t.Fatalf("invalid result with confidence %v", d.Confidence)
					}
					if d.Result != ResultInvalid && d.Confidence != tc {
						t.Fatalf("confidence %v, want test colour ratio %v", d.Confidence, tc)
					}
				}
			}
		}
	}
}
