package recognition

import (
	"errors"
	"fmt"
	"math"
)

// Unknown is the name assigned to a face that matches no gallery entry.
const Unknown = "Unknown"

// DefaultTolerance is the conventional distance cut-off for dlib face encodings.
// Lower values make matching stricter.
const DefaultTolerance = 0.6

var (
	// ErrEmptyGallery is returned when a gallery without identities is built or queried.
	ErrEmptyGallery = errors.New("gallery is empty")
	// ErrDimensionMismatch is returned when two encodings have different lengths.
	ErrDimensionMismatch = errors.New("encoding dimension mismatch")
	// ErrInvalidTolerance is returned for a tolerance <= 0.
	ErrInvalidTolerance = errors.New("tolerance must be greater than zero")
)

// Encoding is a face feature vector produced by the encoder.
type Encoding []float64

// Dimensions returns the vector length.
func (e Encoding) Dimensions() int {
	return len(e)
}

// KnownIdentity pairs a display name with its reference encoding.
type KnownIdentity struct {
	Name     string
	Encoding Encoding
}

// MatchResult is the outcome of matching one query encoding.
type MatchResult struct {
	Name     string  // gallery name or Unknown
	Distance float64 // distance to the closest gallery entry
	Index    int     // gallery index of the winner, -1 when Unknown
}

// Known reports whether the result names a gallery identity.
func (r MatchResult) Known() bool {
	return r.Index >= 0
}

// Gallery is an immutable, ordered set of known identities.
type Gallery struct {
	identities []KnownIdentity
	dimensions int
	tolerance  float64
}

// NewGallery validates and copies identities into a Gallery.
// All encodings must share one dimensionality.
func NewGallery(identities []KnownIdentity, tolerance float64) (*Gallery, error) {
	if len(identities) == 0 {
		return nil, ErrEmptyGallery
	}
	if tolerance <= 0 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidTolerance, tolerance)
	}

	dims := identities[0].Encoding.Dimensions()
	if dims == 0 {
		return nil, fmt.Errorf("identity %q has an empty encoding", identities[0].Name)
	}

	copied := make([]KnownIdentity, len(identities))
	for i, id := range identities {
		if id.Name == "" {
			return nil, fmt.Errorf("identity at index %d has no name", i)
		}
		if id.Encoding.Dimensions() != dims {
			return nil, fmt.Errorf("identity %q: %w (got %d, want %d)",
				id.Name, ErrDimensionMismatch, id.Encoding.Dimensions(), dims)
		}
		enc := make(Encoding, dims)
		copy(enc, id.Encoding)
		copied[i] = KnownIdentity{Name: id.Name, Encoding: enc}
	}

	return &Gallery{identities: copied, dimensions: dims, tolerance: tolerance}, nil
}

// Len returns the number of identities.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.identities)
}

// Dimensions returns the shared encoding length.
func (g *Gallery) Dimensions() int {
	return g.dimensions
}

// Tolerance returns the match cut-off.
func (g *Gallery) Tolerance() float64 {
	return g.tolerance
}

// Names returns the identity names in gallery order.
func (g *Gallery) Names() []string {
	names := make([]string, g.Len())
	for i, id := range g.identities {
		names[i] = id.Name
	}
	return names
}

// Identity returns the identity at index i.
func (g *Gallery) Identity(i int) KnownIdentity {
	return g.identities[i]
}

// Match returns the closest gallery identity if it lies within tolerance,
// otherwise Unknown. Equal distances resolve to the earlier gallery entry.
func (g *Gallery) Match(query Encoding) (MatchResult, error) {
	if g.Len() == 0 {
		return MatchResult{}, ErrEmptyGallery
	}

	distances, err := g.Distances(query)
	if err != nil {
		return MatchResult{}, err
	}
	matches := compare(distances, g.tolerance)

	best := 0
	for i := 1; i < len(distances); i++ {
		if distances[i] < distances[best] {
			best = i
		}
	}

	if !matches[best] {
		return MatchResult{Name: Unknown, Distance: distances[best], Index: -1}, nil
	}
	return MatchResult{Name: g.identities[best].Name, Distance: distances[best], Index: best}, nil
}

// MatchAll matches each query in order. The result has the same length
// and order as queries.
func (g *Gallery) MatchAll(queries []Encoding) ([]MatchResult, error) {
	results := make([]MatchResult, 0, len(queries))
	for i, q := range queries {
		res, err := g.Match(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Distances returns the distance from query to every gallery entry, in gallery order.
func (g *Gallery) Distances(query Encoding) ([]float64, error) {
	if query.Dimensions() != g.dimensions {
		return nil, fmt.Errorf("%w: query has %d components, gallery has %d",
			ErrDimensionMismatch, query.Dimensions(), g.dimensions)
	}
	out := make([]float64, len(g.identities))
	for i, id := range g.identities {
		d, err := Distance(id.Encoding, query)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// CompareFaces reports, per gallery entry, whether query lies within tolerance.
func (g *Gallery) CompareFaces(query Encoding) ([]bool, error) {
	distances, err := g.Distances(query)
	if err != nil {
		return nil, err
	}
	return compare(distances, g.tolerance), nil
}

// Distance is the Euclidean distance between two encodings.
func Distance(a, b Encoding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

func compare(distances []float64, tolerance float64) []bool {
	out := make([]bool, len(distances))
	for i, d := range distances {
		out[i] = d <= tolerance
	}
	return out
}
