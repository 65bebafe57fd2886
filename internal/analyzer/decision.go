package analyzer

// Decide applies the decision rules in order, first match wins:
//
//  1. weak control line            -> Invalid, confidence 0
//  2. strong, sharp test line      -> Positive
//  3. test colour below negative   -> Negative
//  4. anything else                -> Unclear
//
// Every comparison is strict; a value equal to its threshold does not trigger
// the rule. Outside Invalid the confidence is the test colour ratio.
func Decide(control, test BandSignal, t DecisionThresholds) Decision {
	if control.ColorRatio < t.ControlColor || control.EdgeDensity < t.ControlEdge {
		return Decision{Result: ResultInvalid, Confidence: 0}
	}
	if test.ColorRatio > t.PositiveColor && test.EdgeDensity > t.PositiveEdge {
		return Decision{Result: ResultPositive, Confidence: test.ColorRatio}
	}
	if test.ColorRatio < t.NegativeColor {
		return Decision{Result: ResultNegative, Confidence: test.ColorRatio}
	}
	return Decision{Result: ResultUnclear, Confidence: test.ColorRatio}
}
