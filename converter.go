package tex2typst

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Names of the functions the bundle must define.
const (
	FuncTex2Typst = "tex2typst"
	FuncTypst2Tex = "typst2tex"
)

// Option configures a Converter.
type Option func(*config)

type config struct {
	bundle    Bundle
	logger    zerolog.Logger
	cacheSize int
	maxIdle   int
}

// WithBundle replaces the embedded bundle.
func WithBundle(b Bundle) Option {
	return func(cfg *config) {
		cfg.bundle = b
	}
}

// WithLogger sets the logger used for session lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithCacheSize sets the per-function capacity of the result cache. Zero
// disables caching.
func WithCacheSize(n int) Option {
	return func(cfg *config) {
		cfg.cacheSize = n
	}
}

// WithMaxIdleSessions bounds the number of idle interpreter sessions kept for
// reuse. Zero keeps every session created.
func WithMaxIdleSessions(n int) Option {
	return func(cfg *config) {
		cfg.maxIdle = n
	}
}

// Converter exposes the bundle functions as Go calls. It is safe for
// concurrent use: every call runs on a Session it holds exclusively.
type Converter struct {
	registry *Registry
	cache    *resultCache
}

// New returns a Converter. No interpreter is started until the first call.
func New(opts ...Option) (*Converter, error) {
	cfg := &config{
		bundle:    DefaultBundle(),
		logger:    zerolog.Nop(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cacheSize < 0 {
		return nil, fmt.Errorf("invalid cache size %d", cfg.cacheSize)
	}
	if cfg.maxIdle < 0 {
		return nil, fmt.Errorf("invalid idle session limit %d", cfg.maxIdle)
	}
	return &Converter{
		registry: NewRegistry(cfg.bundle, cfg.logger, cfg.maxIdle),
		cache:    newResultCache(cfg.cacheSize),
	}, nil
}

// Tex2Typst converts TeX math to Typst.
func (c *Converter) Tex2Typst(input string, opts *TexOptions) (string, error) {
	mapping, err := texMapping(opts)
	if err != nil {
		return "", err
	}
	return c.Invoke(FuncTex2Typst, input, mapping)
}

// Typst2Tex converts Typst math to TeX.
func (c *Converter) Typst2Tex(input string, opts *TypstOptions) (string, error) {
	return c.Invoke(FuncTypst2Tex, input, opts.Options())
}

// Tex2TypstBatch converts every input with one options object. It stops at
// the first failing input and returns no results in that case.
func (c *Converter) Tex2TypstBatch(inputs []string, opts *TexOptions) ([]string, error) {
	mapping, err := texMapping(opts)
	if err != nil {
		return nil, err
	}
	return c.InvokeBatch(FuncTex2Typst, inputs, mapping)
}

// Typst2TexBatch is the batch form of Typst2Tex.
func (c *Converter) Typst2TexBatch(inputs []string, opts *TypstOptions) ([]string, error) {
	return c.InvokeBatch(FuncTypst2Tex, inputs, opts.Options())
}

// Tex2TypstBatchCollect converts every input, including those after a
// failure. Failed positions hold "" and the returned error is a
// *multierror.Error of *ConversionError values.
func (c *Converter) Tex2TypstBatchCollect(inputs []string, opts *TexOptions) ([]string, error) {
	mapping, err := texMapping(opts)
	if err != nil {
		return nil, err
	}
	return c.InvokeBatchCollect(FuncTex2Typst, inputs, mapping)
}

// Typst2TexBatchCollect is the collecting form of Typst2TexBatch.
func (c *Converter) Typst2TexBatchCollect(inputs []string, opts *TypstOptions) ([]string, error) {
	return c.InvokeBatchCollect(FuncTypst2Tex, inputs, opts.Options())
}

// Invoke calls any bundle function with one input and an options mapping.
// Results are served from the cache when possible.
func (c *Converter) Invoke(function, input string, opts Options) (string, error) {
	cached, key, hit, cacheable := c.cache.lookup(function, input, opts)
	if hit {
		return cached, nil
	}
	var out string
	err := c.registry.With(func(s *Session) error {
		var err error
		out, err = convert(s, function, input, opts)
		return err
	})
	if err != nil {
		return "", err
	}
	if cacheable {
		c.cache.add(function, key, out)
	}
	return out, nil
}

// InvokeBatch calls function once per input on a single session, reusing
// one options object for the whole batch.
func (c *Converter) InvokeBatch(function string, inputs []string, opts Options) ([]string, error) {
	var out []string
	err := c.registry.With(func(s *Session) error {
		var err error
		out, err = convertBatch(s, function, inputs, opts)
		return err
	})
	return out, err
}

// InvokeBatchCollect is InvokeBatch without the early abort.
func (c *Converter) InvokeBatchCollect(function string, inputs []string, opts Options) ([]string, error) {
	var out []string
	err := c.registry.With(func(s *Session) error {
		var err error
		out, err = convertBatchCollect(s, function, inputs, opts)
		return err
	})
	return out, err
}

// Worker pins one Session to the caller. It suits a goroutine that performs
// many conversions in a row. A Worker must not be used concurrently.
func (c *Converter) Worker() (*Worker, error) {
	s, err := c.registry.Get()
	if err != nil {
		return nil, err
	}
	return &Worker{registry: c.registry, session: s}, nil
}

// CacheInfo reports cache statistics per bundle function.
func (c *Converter) CacheInfo() map[string]CacheStats {
	return c.cache.stats()
}

// ClearCache drops every cached result and resets the counters.
func (c *Converter) ClearCache() {
	c.cache.purge()
}

// Stats reports the session registry state.
func (c *Converter) Stats() RegistryStats {
	return c.registry.Stats()
}

// Close releases idle interpreter sessions.
func (c *Converter) Close() {
	c.registry.Shutdown()
}

func texMapping(opts *TexOptions) (Options, error) {
	if opts == nil {
		return nil, nil
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	return opts.Options(), nil
}

func convert(s *Session, function, input string, opts Options) (string, error) {
	var out string
	err := s.WithContext(func(ctx *Context) error {
		obj, err := ctx.BuildOptions(opts)
		if err != nil {
			return err
		}
		out, err = ctx.Invoke(function, []string{input}, obj)
		if err != nil {
			return conversionError(function, input, -1, err)
		}
		return nil
	})
	return out, err
}

func convertBatch(s *Session, function string, inputs []string, opts Options) ([]string, error) {
	results := make([]string, 0, len(inputs))
	err := s.WithContext(func(ctx *Context) error {
		obj, err := ctx.BuildOptions(opts)
		if err != nil {
			return err
		}
		for i, input := range inputs {
			out, err := ctx.Invoke(function, []string{input}, obj)
			if err != nil {
				return conversionError(function, input, i, err)
			}
			results = append(results, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func convertBatchCollect(s *Session, function string, inputs []string, opts Options) ([]string, error) {
	results := make([]string, len(inputs))
	var errs *multierror.Error
	err := s.WithContext(func(ctx *Context) error {
		obj, err := ctx.BuildOptions(opts)
		if err != nil {
			return err
		}
		for i, input := range inputs {
			out, err := ctx.Invoke(function, []string{input}, obj)
			if err != nil {
				var be *BindingError
				if errors.As(err, &be) {
					return err
				}
				errs = multierror.Append(errs, conversionError(function, input, i, err))
				continue
			}
			results[i] = out
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, errs.ErrorOrNil()
}

// conversionError wraps interpreter exceptions. Binding and context errors
// pass through unchanged.
func conversionError(function, input string, index int, err error) error {
	var je *JSError
	if !errors.As(err, &je) {
		return err
	}
	return &ConversionError{Function: function, Input: input, Index: index, Err: je}
}
