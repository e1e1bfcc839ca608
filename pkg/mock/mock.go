// Package mock produces placeholder values that conform to a schema.Shape.
//
// Generated values always parse strictly against the shape they were generated from, which makes
// them usable as offline stand-ins for API responses.
package mock

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

const (
	DefaultMaxDepth            = 8
	DefaultOptionalProbability = 0.8
	DefaultNullProbability     = 0.01
	DefaultMaxArrayLength      = 5

	defaultNumberMin = 0
	defaultNumberMax = 100
	patternAttempts  = 20
)

// Generator is safe for concurrent use.
type Generator struct {
	mu          sync.Mutex
	faker       *gofakeit.Faker
	maxDepth    int
	optionalP   float64
	nullP       float64
	maxArrayLen int
	now         func() time.Time
}

type Option func(*Generator)

// WithSeed makes generation reproducible. Seed 0 picks a random seed.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.faker = gofakeit.New(seed)
	}
}

func WithMaxDepth(depth int) Option {
	return func(g *Generator) {
		g.maxDepth = depth
	}
}

// WithOptionalProbability sets the chance that an optional field is present.
func WithOptionalProbability(p float64) Option {
	return func(g *Generator) {
		g.optionalP = p
	}
}

// WithNullProbability sets the chance that a nullable value is null.
func WithNullProbability(p float64) Option {
	return func(g *Generator) {
		g.nullP = p
	}
}

// WithArrayLength caps the length of generated lists.
func WithArrayLength(n int) Option {
	return func(g *Generator) {
		g.maxArrayLen = n
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		maxDepth:    DefaultMaxDepth,
		optionalP:   DefaultOptionalProbability,
		nullP:       DefaultNullProbability,
		maxArrayLen: DefaultMaxArrayLength,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.faker == nil {
		g.faker = gofakeit.New(0)
	}
	return g
}

// Generate returns a random value conforming to s.
func (g *Generator) Generate(s schema.Shape) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(s, 0)
}

// Value generates a value for s and decodes it into T.
func Value[T any](g *Generator, s schema.Shape) (T, error) {
	v, err := g.Generate(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return schema.DecodeValue[T](s, v)
}

func (g *Generator) chance(p float64) bool {
	return g.faker.Float64() < p
}

func (g *Generator) generate(s schema.Shape, depth int) (any, error) {
	atLimit := depth >= g.maxDepth
	switch t := s.(type) {
	case schema.String:
		return g.str(t)
	case schema.Number:
		return g.number(t)
	case schema.Bool:
		return g.faker.Bool(), nil
	case schema.Literal:
		return t.Value, nil
	case schema.Enum:
		if len(t.Values) == 0 {
			return nil, fmt.Errorf("enum without values")
		}
		return g.faker.RandomString(t.Values), nil
	case schema.Nullable:
		if atLimit || g.chance(g.nullP) {
			return nil, nil
		}
		return g.generate(t.Inner, depth)
	case schema.Object:
		if depth > g.maxDepth {
			return nil, constants.ErrDepthExceeded
		}
		out := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			if f.Optional && (atLimit || !g.chance(g.optionalP)) {
				continue
			}
			v, err := g.generate(f.Shape, depth+1)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		return out, nil
	case schema.Array:
		if depth > g.maxDepth {
			return nil, constants.ErrDepthExceeded
		}
		return g.list(t.Elem, t.MinItems, t.MaxItems, depth)
	case schema.SoftArray:
		if depth > g.maxDepth {
			return nil, constants.ErrDepthExceeded
		}
		return g.list(t.Elem, 0, 0, depth)
	case schema.Union:
		return g.union(t, depth)
	case schema.Pipe:
		v, err := g.generate(t.Inner, depth)
		if err != nil {
			return nil, err
		}
		if t.Transform.Fn == nil {
			return v, nil
		}
		return t.Transform.Fn(v)
	case schema.Any:
		return g.faker.Word(), nil
	case schema.Ref:
		return g.generate(t.Resolve(), depth)
	default:
		return nil, fmt.Errorf("cannot generate %T", s)
	}
}

func (g *Generator) list(elem schema.Shape, minItems, maxItems, depth int) (any, error) {
	hi := g.maxArrayLen
	if hi < minItems {
		hi = minItems
	}
	if maxItems > 0 && hi > maxItems {
		hi = maxItems
	}
	n := minItems
	if depth < g.maxDepth && hi > minItems {
		n = g.faker.IntRange(minItems, hi)
	}
	out := make([]any, 0, n)
	for range n {
		v, err := g.generate(elem, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (g *Generator) union(u schema.Union, depth int) (any, error) {
	if len(u.Options) == 0 {
		return nil, fmt.Errorf("union without options")
	}
	start := g.faker.IntN(len(u.Options))
	var firstErr error
	for i := range u.Options {
		v, err := g.generate(u.Options[(start+i)%len(u.Options)], depth)
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func (g *Generator) str(s schema.String) (any, error) {
	switch s.Format {
	case schema.FormatEmail:
		return g.faker.Email(), nil
	case schema.FormatUUID:
		id, err := uuid.NewGenWithOptions(uuid.WithRandomReader(fakerReader{g.faker})).NewV4()
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	case schema.FormatDateTime:
		return g.recent().Format(time.RFC3339), nil
	case schema.FormatDate:
		return g.recent().Format(time.DateOnly), nil
	case schema.FormatURL:
		return g.faker.URL(), nil
	case schema.FormatJWT:
		return g.jwt()
	}

	if s.Pattern != nil {
		for range patternAttempts {
			candidate := g.faker.Regex(s.Pattern.String())
			if schema.Is(s, candidate) {
				return candidate, nil
			}
		}
		return nil, fmt.Errorf("cannot generate a string matching %s", s.Pattern)
	}
	return g.text(s.MinLen, s.MaxLen), nil
}

func (g *Generator) text(minLen, maxLen int) string {
	if minLen == 0 && maxLen == 0 {
		return g.faker.Sentence(3)
	}
	var b strings.Builder
	for b.Len() < minLen || b.Len() == 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.faker.Word())
	}
	out := []rune(b.String())
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return string(out)
}

func (g *Generator) recent() time.Time {
	now := g.now().UTC().Truncate(time.Second)
	return g.faker.DateRange(now.AddDate(-1, 0, 0), now).UTC()
}

func (g *Generator) jwt() (any, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": g.faker.Word(),
		"iat": g.now().Unix(),
	})
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}

func (g *Generator) number(n schema.Number) (any, error) {
	lo, hi := float64(defaultNumberMin), float64(defaultNumberMax)
	switch {
	case n.Min != nil && n.Max != nil:
		lo, hi = *n.Min, *n.Max
	case n.Min != nil:
		lo = *n.Min
		hi = math.Max(hi, lo+defaultNumberMax)
	case n.Max != nil:
		hi = *n.Max
		lo = math.Min(lo, hi-defaultNumberMax)
	}

	if n.Integer {
		ilo, ihi := int64(math.Ceil(lo)), int64(math.Floor(hi))
		if n.ExclusiveMin && float64(ilo) <= lo {
			ilo++
		}
		if n.ExclusiveMax && float64(ihi) >= hi {
			ihi--
		}
		if ilo > ihi {
			return nil, fmt.Errorf("no integer between %v and %v", lo, hi)
		}
		return ilo + int64(g.faker.IntN(int(ihi-ilo+1))), nil
	}

	if lo > hi {
		return nil, fmt.Errorf("empty range %v..%v", lo, hi)
	}
	for range patternAttempts {
		f := g.faker.Float64Range(lo, hi)
		if (n.ExclusiveMin && f <= lo) || (n.ExclusiveMax && f >= hi) {
			continue
		}
		return f, nil
	}
	return (lo + hi) / 2, nil
}

// fakerReader draws bytes from the faker so that seeded generators repeat their UUIDs.
type fakerReader struct {
	f *gofakeit.Faker
}

func (r fakerReader) Read(p []byte) (int, error) {
	var chunk [8]byte
	for i := 0; i < len(p); i += len(chunk) {
		binary.LittleEndian.PutUint64(chunk[:], r.f.Uint64())
		copy(p[i:], chunk[:])
	}
	return len(p), nil
}
