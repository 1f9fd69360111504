package voicing

import (
	"fmt"
	"math"
)

const (
	defaultStayVoiced       = 0.95
	defaultStayUnvoiced     = 0.85
	defaultThreshold        = 0.35
	defaultSlope            = 12.0
	defaultMedianWidth      = 5
	defaultMaxStepSemitones = 1.5
	defaultMaxIterations    = 64
)

// Option configures a [Model].
type Option func(*config)

type config struct {
	stayVoiced   float64
	stayUnvoiced float64
	threshold    float64
	slope        float64
	medianWidth  int
	maxStep      float64
	maxIter      int
}

func defaultConfig() config {
	return config{
		stayVoiced:   defaultStayVoiced,
		stayUnvoiced: defaultStayUnvoiced,
		threshold:    defaultThreshold,
		slope:        defaultSlope,
		medianWidth:  defaultMedianWidth,
		maxStep:      defaultMaxStepSemitones,
		maxIter:      defaultMaxIterations,
	}
}

// WithStayProbabilities sets the self-transition probabilities of the
// voiced and unvoiced states.
func WithStayProbabilities(voiced, unvoiced float64) Option {
	return func(c *config) {
		c.stayVoiced = voiced
		c.stayUnvoiced = unvoiced
	}
}

// WithEmission sets the logistic mapping from the periodicity score to the
// voiced emission probability.
func WithEmission(threshold, slope float64) Option {
	return func(c *config) {
		c.threshold = threshold
		c.slope = slope
	}
}

// WithMedianWidth sets the odd median filter width in frames.
func WithMedianWidth(n int) Option {
	return func(c *config) { c.medianWidth = n }
}

// WithMaxStepSemitones bounds the pitch change between adjacent voiced
// frames.
func WithMaxStepSemitones(st float64) Option {
	return func(c *config) { c.maxStep = st }
}

// WithMaxIterations bounds the median filter passes per segment.
func WithMaxIterations(n int) Option {
	return func(c *config) { c.maxIter = n }
}

func (c config) validate() error {
	switch {
	case !(c.stayVoiced > 0 && c.stayVoiced < 1):
		return fmt.Errorf("voicing stay probability (voiced) must be in (0,1): %f", c.stayVoiced)
	case !(c.stayUnvoiced > 0 && c.stayUnvoiced < 1):
		return fmt.Errorf("voicing stay probability (unvoiced) must be in (0,1): %f", c.stayUnvoiced)
	case !(c.threshold >= 0 && c.threshold <= 1):
		return fmt.Errorf("voicing threshold must be in [0,1]: %f", c.threshold)
	case !(c.slope > 0) || math.IsInf(c.slope, 0):
		return fmt.Errorf("voicing slope must be positive and finite: %f", c.slope)
	case c.medianWidth < 1 || c.medianWidth%2 == 0:
		return fmt.Errorf("voicing median width must be odd and >= 1: %d", c.medianWidth)
	case !(c.maxStep > 0) || math.IsInf(c.maxStep, 0):
		return fmt.Errorf("voicing max step must be positive and finite: %f", c.maxStep)
	case c.maxIter < 1:
		return fmt.Errorf("voicing max iterations must be >= 1: %d", c.maxIter)
	}
	return nil
}
