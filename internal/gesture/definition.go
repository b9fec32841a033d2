package gesture

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Segment kinds accepted by SegmentSpec.
const (
	KindPosition     = "position"
	KindDisplacement = "displacement"
	KindStillness    = "stillness"
	KindEither       = "either"
)

// Definition is the serializable form of a gesture.
type Definition struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Timeout     int           `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Segments    []SegmentSpec `yaml:"segments" json:"segments"`
}

// ComparisonSpec is the serializable form of a Comparison, optionally
// between its own pair of joints when used as a guard.
type ComparisonSpec struct {
	Joint     string  `yaml:"joint,omitempty" json:"joint,omitempty"`
	Reference string  `yaml:"reference,omitempty" json:"reference,omitempty"`
	Axis      string  `yaml:"axis" json:"axis"`
	Direction string  `yaml:"direction,omitempty" json:"direction,omitempty"`
	Min       float64 `yaml:"min" json:"min"`
}

// SegmentSpec is the serializable form of a Segment. Which fields apply
// depends on Kind.
type SegmentSpec struct {
	Kind          string           `yaml:"kind" json:"kind"`
	Joint         string           `yaml:"joint,omitempty" json:"joint,omitempty"`
	Reference     string           `yaml:"reference,omitempty" json:"reference,omitempty"`
	Conditions    []ComparisonSpec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Guards        []ComparisonSpec `yaml:"guards,omitempty" json:"guards,omitempty"`
	Hold          int              `yaml:"hold,omitempty" json:"hold,omitempty"`
	Axis          string           `yaml:"axis,omitempty" json:"axis,omitempty"`
	Direction     string           `yaml:"direction,omitempty" json:"direction,omitempty"`
	Distance      float64          `yaml:"distance,omitempty" json:"distance,omitempty"`
	Window        int              `yaml:"window,omitempty" json:"window,omitempty"`
	Tolerance     float64          `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Radius        float64          `yaml:"radius,omitempty" json:"radius,omitempty"`
	AllowInferred bool             `yaml:"allow_inferred,omitempty" json:"allow_inferred,omitempty"`
	Options       []SegmentSpec    `yaml:"options,omitempty" json:"options,omitempty"`
}

// Validate checks the definition without keeping the built segments.
func (d Definition) Validate() error {
	_, err := d.Build()
	return err
}

// Build constructs fresh segment instances for the definition.
func (d Definition) Build() ([]Segment, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if len(d.Segments) == 0 {
		return nil, fmt.Errorf("%w: gesture %q has no segments", ErrInvalidDefinition, d.Name)
	}

	segs := make([]Segment, 0, len(d.Segments))
	for i, spec := range d.Segments {
		s, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("%w: gesture %q segment %d: %v", ErrInvalidDefinition, d.Name, i, err)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

// Build constructs a segment from its spec.
func (s SegmentSpec) Build() (Segment, error) {
	switch s.Kind {
	case KindPosition:
		return s.buildPosition()
	case KindDisplacement:
		return s.buildDisplacement()
	case KindStillness:
		return s.buildStillness()
	case KindEither:
		if len(s.Options) == 0 {
			return nil, fmt.Errorf("either needs at least one option")
		}
		e := &Either{}
		for i, o := range s.Options {
			seg, err := o.Build()
			if err != nil {
				return nil, fmt.Errorf("option %d: %w", i, err)
			}
			e.Options = append(e.Options, seg)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown segment kind %q", s.Kind)
	}
}

func (s SegmentSpec) buildPosition() (Segment, error) {
	joint, err := skeleton.ParseJointType(s.Joint)
	if err != nil {
		return nil, err
	}
	ref, err := skeleton.ParseJointType(s.Reference)
	if err != nil {
		return nil, err
	}
	if len(s.Conditions) == 0 {
		return nil, fmt.Errorf("position needs at least one condition")
	}

	seg := &RelativePosition{
		Joint:         joint,
		Reference:     ref,
		Hold:          s.Hold,
		AllowInferred: s.AllowInferred,
	}
	for _, c := range s.Conditions {
		cmp, err := c.comparison()
		if err != nil {
			return nil, err
		}
		seg.Conditions = append(seg.Conditions, cmp)
	}
	for _, g := range s.Guards {
		rel, err := g.relation(joint, ref)
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		seg.Guards = append(seg.Guards, rel)
	}
	return seg, nil
}

func (s SegmentSpec) buildDisplacement() (Segment, error) {
	joint, err := skeleton.ParseJointType(s.Joint)
	if err != nil {
		return nil, err
	}
	axis, err := skeleton.ParseAxis(s.Axis)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirection(s.Direction)
	if err != nil {
		return nil, err
	}
	if s.Distance <= 0 {
		return nil, fmt.Errorf("displacement distance must be positive")
	}
	if s.Window < 0 || s.Tolerance < 0 {
		return nil, fmt.Errorf("displacement window and tolerance must not be negative")
	}

	return &Displacement{
		Joint:         joint,
		Axis:          axis,
		Direction:     dir,
		Distance:      s.Distance,
		Window:        s.Window,
		Tolerance:     s.Tolerance,
		AllowInferred: s.AllowInferred,
	}, nil
}

func (s SegmentSpec) buildStillness() (Segment, error) {
	joint, err := skeleton.ParseJointType(s.Joint)
	if err != nil {
		return nil, err
	}
	if s.Radius <= 0 {
		return nil, fmt.Errorf("stillness radius must be positive")
	}
	return &Stillness{
		Joint:         joint,
		Radius:        s.Radius,
		Hold:          s.Hold,
		AllowInferred: s.AllowInferred,
	}, nil
}

func (c ComparisonSpec) comparison() (Comparison, error) {
	axis, err := skeleton.ParseAxis(c.Axis)
	if err != nil {
		return Comparison{}, err
	}
	dir, err := ParseDirection(c.Direction)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Axis: axis, Direction: dir, Min: c.Min}, nil
}

// relation builds a guard. Missing joints default to the segment's own pair.
func (c ComparisonSpec) relation(joint, ref skeleton.JointType) (Relation, error) {
	cmp, err := c.comparison()
	if err != nil {
		return Relation{}, err
	}
	rel := Relation{Joint: joint, Reference: ref, Comparison: cmp}
	if c.Joint != "" {
		if rel.Joint, err = skeleton.ParseJointType(c.Joint); err != nil {
			return Relation{}, err
		}
	}
	if c.Reference != "" {
		if rel.Reference, err = skeleton.ParseJointType(c.Reference); err != nil {
			return Relation{}, err
		}
	}
	return rel, nil
}

// AddDefinition builds and registers a gesture from its definition.
// A non-zero Definition.Timeout overrides the engine default.
func (e *Engine) AddDefinition(d Definition) error {
	segs, err := d.Build()
	if err != nil {
		return err
	}
	m, err := NewMatcher(d.Name, segs...)
	if err != nil {
		return err
	}
	m.Timeout = e.opts.Timeout
	if d.Timeout > 0 {
		m.Timeout = d.Timeout
	}
	e.addMatcher(m)
	return nil
}

// DefinitionFile is the on-disk layout of a gesture library.
type DefinitionFile struct {
	Gestures []Definition `yaml:"gestures" json:"gestures"`
}

// ParseDefinitions decodes a YAML (or JSON) gesture library and validates
// every definition.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse gesture definitions: %w", err)
	}
	for _, d := range file.Gestures {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Gestures, nil
}

// MarshalDefinitions encodes definitions in the layout read by ParseDefinitions.
func MarshalDefinitions(defs []Definition) ([]byte, error) {
	return yaml.Marshal(DefinitionFile{Gestures: defs})
}
