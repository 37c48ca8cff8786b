package tex2typst

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/robertkrimen/otto"
)

// Context is the scoped handle to a Session's interpreter context, valid only
// inside Session.WithContext.
type Context struct {
	engine *jsEngine
	open   bool
}

func (c *Context) live() (*jsEngine, error) {
	if !c.open {
		return nil, ErrContextClosed
	}
	return c.engine, nil
}

// BuildOptions converts opts into an interpreter object. Booleans, strings
// and string maps are set directly; every other value goes through JSON and
// the interpreter's JSON.parse. It returns nil for an empty mapping.
func (c *Context) BuildOptions(opts Options) (*otto.Object, error) {
	return c.buildOptions(opts, false)
}

// buildOptionsJSON builds the same object using only the JSON path.
func (c *Context) buildOptionsJSON(opts Options) (*otto.Object, error) {
	return c.buildOptions(opts, true)
}

func (c *Context) buildOptions(opts Options, jsonOnly bool) (*otto.Object, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	e, err := c.live()
	if err != nil {
		return nil, err
	}
	obj, err := e.NewObject()
	if err != nil {
		return nil, &TranslationError{Err: fmt.Errorf("create options object: %w", newJSError(err))}
	}
	for _, key := range opts.keys() {
		value := opts[key]
		if jsonOnly {
			err = setJSON(e, obj, key, value)
		} else {
			err = setDirect(e, obj, key, value)
		}
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func setDirect(e *jsEngine, obj *otto.Object, key string, value OptionValue) error {
	var err error
	switch v := value.(type) {
	case BoolValue:
		err = obj.Set(key, bool(v))
	case StringValue:
		err = obj.Set(key, string(v))
	case MapValue:
		var nested *otto.Object
		nested, err = e.NewObject()
		if err != nil {
			break
		}
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err = nested.Set(name, v[name]); err != nil {
				break
			}
		}
		if err == nil {
			err = obj.Set(key, nested.Value())
		}
	default:
		return setJSON(e, obj, key, value)
	}
	if err != nil {
		return &TranslationError{Key: key, Value: value, Err: newJSError(err)}
	}
	return nil
}

func setJSON(e *jsEngine, obj *otto.Object, key string, value OptionValue) error {
	text, err := json.Marshal(value)
	if err != nil {
		return &TranslationError{Key: key, Value: value, Err: err}
	}
	parsed, err := e.ParseJSON(string(text))
	if err != nil {
		return &TranslationError{Key: key, Value: value, Err: newJSError(err)}
	}
	if err := obj.Set(key, parsed); err != nil {
		return &TranslationError{Key: key, Value: value, Err: newJSError(err)}
	}
	return nil
}

// Invoke calls the global function with args followed by opts. When opts is
// nil the function receives only args. Exceptions are returned as *JSError,
// a missing function as *BindingError.
func (c *Context) Invoke(function string, args []string, opts *otto.Object) (string, error) {
	e, err := c.live()
	if err != nil {
		return "", err
	}
	fn, ok := e.function(function)
	if !ok {
		return "", &BindingError{Name: function}
	}
	callArgs := make([]interface{}, 0, len(args)+1)
	for _, arg := range args {
		callArgs = append(callArgs, arg)
	}
	if opts != nil {
		callArgs = append(callArgs, opts.Value())
	}
	result, err := e.Call(fn, callArgs...)
	if err != nil {
		return "", newJSError(err)
	}
	if !result.IsString() {
		return "", &JSError{
			Kind:    KindEngine,
			Message: fmt.Sprintf("%s returned a non-string value: %s", function, result.String()),
		}
	}
	return result.String(), nil
}

// Export converts an interpreter value back into Go values.
func (c *Context) Export(v otto.Value) (any, error) {
	if _, err := c.live(); err != nil {
		return nil, err
	}
	return v.Export()
}
