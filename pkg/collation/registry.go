package collation

import (
	"fmt"
	"sync"

	"github.com/Yiling-J/theine-go"
	"golang.org/x/sync/singleflight"

	"github.com/openfga/flwor/pkg/evalerr"
)

const defaultCacheSize = 256

// Registry resolves collation URIs. Parameterized UCA collations are built on
// first use and cached; concurrent first uses of one URI build it once. The
// cache is created with the first UCA collation, so a registry that only
// serves registered collations holds no background resources.
type Registry struct {
	mu         sync.RWMutex
	registered map[string]Collation
	defaultURI string

	cacheMu   sync.Mutex
	cache     *theine.Cache[string, Collation]
	cacheSize int64
	group     singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCacheSize sets the maximum number of UCA collations kept.
func WithCacheSize(n int64) RegistryOption {
	return func(r *Registry) {
		r.cacheSize = n
	}
}

// WithDefault sets the URI of the default collation. It is resolved lazily.
func WithDefault(uri string) RegistryOption {
	return func(r *Registry) {
		r.defaultURI = uri
	}
}

// WithCollation registers a custom collation under its URI.
func WithCollation(c Collation) RegistryOption {
	return func(r *Registry) {
		r.registered[c.URI()] = c
	}
}

// NewRegistry returns a registry knowing the codepoint, HTML ASCII
// case-insensitive and UCA collations. The default collation is codepoint.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		registered: map[string]Collation{
			CodepointURI:                Codepoint,
			HTMLASCIICaseInsensitiveURI: HTMLASCIICaseInsensitive,
		},
		defaultURI: CodepointURI,
		cacheSize:  defaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize <= 0 {
		return nil, fmt.Errorf("collation cache size must be positive, got %d", r.cacheSize)
	}
	return r, nil
}

func (r *Registry) ucaCache() (*theine.Cache[string, Collation], error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cache == nil {
		cache, err := theine.NewBuilder[string, Collation](r.cacheSize).Build()
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r.cache, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(opts ...RegistryOption) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a custom collation, replacing any previous one with the same
// URI.
func (r *Registry) Register(c Collation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[c.URI()] = c
}

// Resolve returns the collation for uri. The empty string denotes the default
// collation. Unknown URIs fail with FOCH0002.
func (r *Registry) Resolve(uri string) (Collation, error) {
	if uri == "" {
		uri = r.defaultURI
	}

	r.mu.RLock()
	c, ok := r.registered[uri]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	cache, err := r.ucaCache()
	if err != nil {
		return nil, err
	}
	if c, ok := cache.Get(uri); ok {
		return c, nil
	}

	v, err, _ := r.group.Do(uri, func() (interface{}, error) {
		u, err := ParseUCA(uri)
		if err != nil {
			return nil, err
		}
		cache.Set(uri, u, 1)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Collation), nil
}

// Default returns the default collation.
func (r *Registry) Default() (Collation, error) {
	return r.Resolve("")
}

// ForLanguage returns a UCA collation for the given language and case order.
// caseOrder is "upper-first", "lower-first" or empty. Invalid values fail with
// XTDE0030.
func (r *Registry) ForLanguage(lang, caseOrder string) (Collation, error) {
	var params UCAParams
	if lang != "" {
		tag, err := parseLanguage(lang)
		if err != nil {
			return nil, err
		}
		params.Lang = tag
	}
	switch caseOrder {
	case "", "#default":
	case "upper-first":
		params.CaseFirst = CaseFirstUpper
	case "lower-first":
		params.CaseFirst = CaseFirstLower
	default:
		return nil, evalerr.New(evalerr.CodeInvalidSortParameter,
			"case-order must be upper-first or lower-first, found %q", caseOrder)
	}
	return r.Resolve(params.URI())
}

// Close releases the cache. The registry can still be used afterwards; a new
// cache is created on the next UCA resolution.
func (r *Registry) Close() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cache != nil {
		r.cache.Close()
		r.cache = nil
	}
}
