package tex2typst

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OptionValue is one entry of an Options mapping. The concrete types are
// BoolValue, StringValue, MapValue and JSONValue; JSONValue carries any other
// shape and is marshaled through JSON.
type OptionValue interface {
	optionValue()
}

type (
	BoolValue   bool
	StringValue string
	MapValue    map[string]string
	JSONValue   struct{ Value any }
)

func (BoolValue) optionValue()   {}
func (StringValue) optionValue() {}
func (MapValue) optionValue()    {}
func (JSONValue) optionValue()   {}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value)
}

// Options maps option names to values. A nil or empty Options means the
// bundle function is called without an options argument.
type Options map[string]OptionValue

func (o Options) keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TexOptions are the optional flags of tex2typst. Nil fields are left out of
// the options object entirely.
type TexOptions struct {
	NonStrict        *bool             `mapstructure:"nonStrict" json:"nonStrict,omitempty" jsonschema:"description=Accept unknown commands instead of failing"`
	PreferShorthands *bool             `mapstructure:"preferShorthands" json:"preferShorthands,omitempty" jsonschema:"description=Emit shorthand symbols such as -> and <="`
	KeepSpaces       *bool             `mapstructure:"keepSpaces" json:"keepSpaces,omitempty" jsonschema:"description=Preserve spacing from the input"`
	FracToSlash      *bool             `mapstructure:"fracToSlash" json:"fracToSlash,omitempty" jsonschema:"description=Render simple fractions as a/b"`
	InftyToOo        *bool             `mapstructure:"inftyToOo" json:"inftyToOo,omitempty" jsonschema:"description=Render infinity as oo"`
	Optimize         *bool             `mapstructure:"optimize" json:"optimize,omitempty" jsonschema:"description=Simplify the generated markup"`
	CustomTexMacros  map[string]string `mapstructure:"customTexMacros" json:"customTexMacros,omitempty" validate:"omitempty,dive,keys,required,endkeys" jsonschema:"description=Macro name to replacement TeX"`
}

// Options returns the mapping for o, or nil when no flag is set.
func (o *TexOptions) Options() Options {
	if o == nil {
		return nil
	}
	m := make(Options, 7)
	setBool(m, "nonStrict", o.NonStrict)
	setBool(m, "preferShorthands", o.PreferShorthands)
	setBool(m, "keepSpaces", o.KeepSpaces)
	setBool(m, "fracToSlash", o.FracToSlash)
	setBool(m, "inftyToOo", o.InftyToOo)
	setBool(m, "optimize", o.Optimize)
	if o.CustomTexMacros != nil {
		m["customTexMacros"] = MapValue(o.CustomTexMacros)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// TypstOptions are the optional flags of typst2tex.
type TypstOptions struct {
	BlockMathMode *bool `mapstructure:"blockMathMode" json:"blockMathMode,omitempty" jsonschema:"description=Render for display math"`
}

// Options returns the mapping for o, or nil when no flag is set.
func (o *TypstOptions) Options() Options {
	if o == nil || o.BlockMathMode == nil {
		return nil
	}
	return Options{"blockMathMode": BoolValue(*o.BlockMathMode)}
}

func setBool(m Options, key string, v *bool) {
	if v != nil {
		m[key] = BoolValue(*v)
	}
}

// Bool returns a pointer to v, for filling option structs.
func Bool(v bool) *bool {
	return &v
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateOptions checks an options struct and reports the first failing
// field as a TranslationError.
func validateOptions(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		key := fe.Field()
		if i := strings.IndexByte(key, '['); i >= 0 {
			key = key[:i]
		}
		return &TranslationError{Key: key, Value: fe.Value(), Err: err}
	}
	return &TranslationError{Err: err}
}
