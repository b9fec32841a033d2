package gesture

// Builtin returns the gestures shipped with mudra.
// Every call returns new definitions that callers may modify.
func Builtin() []Definition {
	return []Definition{
		{
			Name:        "wave",
			Description: "Right hand swings from right of the right shoulder to left of it",
			Segments: []SegmentSpec{
				{
					Kind: KindPosition, Joint: "hand-right", Reference: "shoulder-right", Hold: 3,
					Conditions: []ComparisonSpec{{Axis: "x", Direction: "positive", Min: 0.15}},
				},
				{
					Kind: KindPosition, Joint: "hand-right", Reference: "shoulder-right", Hold: 3,
					Conditions: []ComparisonSpec{{Axis: "x", Direction: "negative", Min: 0.15}},
					Guards:     []ComparisonSpec{{Axis: "x", Direction: "positive", Min: 0.15}},
				},
			},
		},
		{
			Name:        "wave-left",
			Description: "Left hand swings from left of the left shoulder to right of it",
			Segments: []SegmentSpec{
				{
					Kind: KindPosition, Joint: "hand-left", Reference: "shoulder-left", Hold: 3,
					Conditions: []ComparisonSpec{{Axis: "x", Direction: "negative", Min: 0.15}},
				},
				{
					Kind: KindPosition, Joint: "hand-left", Reference: "shoulder-left", Hold: 3,
					Conditions: []ComparisonSpec{{Axis: "x", Direction: "positive", Min: 0.15}},
					Guards:     []ComparisonSpec{{Axis: "x", Direction: "negative", Min: 0.15}},
				},
			},
		},
		{
			Name:        "swipe-left",
			Description: "Raised right hand sweeps quickly to the left",
			Timeout:     30,
			Segments: []SegmentSpec{
				{
					Kind: KindPosition, Joint: "hand-right", Reference: "elbow-right", Hold: 2,
					Conditions: []ComparisonSpec{{Axis: "y", Direction: "positive", Min: 0.05}},
				},
				{
					Kind: KindDisplacement, Joint: "hand-right", Axis: "x", Direction: "negative",
					Distance: 0.4, Window: 15, Tolerance: 0.05,
				},
			},
		},
		{
			Name:        "swipe-right",
			Description: "Raised left hand sweeps quickly to the right",
			Timeout:     30,
			Segments: []SegmentSpec{
				{
					Kind: KindPosition, Joint: "hand-left", Reference: "elbow-left", Hold: 2,
					Conditions: []ComparisonSpec{{Axis: "y", Direction: "positive", Min: 0.05}},
				},
				{
					Kind: KindDisplacement, Joint: "hand-left", Axis: "x", Direction: "positive",
					Distance: 0.4, Window: 15, Tolerance: 0.05,
				},
			},
		},
		{
			Name:        "push",
			Description: "Right hand pushes towards the sensor",
			Timeout:     30,
			Segments: []SegmentSpec{
				{
					Kind: KindPosition, Joint: "hand-right", Reference: "shoulder-right", Hold: 2,
					Conditions: []ComparisonSpec{{Axis: "z", Direction: "negative", Min: 0.15}},
				},
				{
					Kind: KindDisplacement, Joint: "hand-right", Axis: "z", Direction: "negative",
					Distance: 0.3, Window: 15, Tolerance: 0.05,
				},
			},
		},
		{
			Name:        "raise-hand",
			Description: "Either hand held above the head",
			Segments: []SegmentSpec{
				{
					Kind: KindEither,
					Options: []SegmentSpec{
						{
							Kind: KindPosition, Joint: "hand-right", Reference: "head", Hold: 10,
							Conditions: []ComparisonSpec{{Axis: "y", Direction: "positive", Min: 0.05}},
						},
						{
							Kind: KindPosition, Joint: "hand-left", Reference: "head", Hold: 10,
							Conditions: []ComparisonSpec{{Axis: "y", Direction: "positive", Min: 0.05}},
						},
					},
				},
			},
		},
	}
}
