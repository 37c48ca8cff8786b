package tex2typst

import (
	"errors"
	"fmt"

	"github.com/robertkrimen/otto"
)

type jsEngine struct {
	vm        *otto.Otto
	json      otto.Value
	jsonParse otto.Value
	fn        map[string]otto.Value
	ready     bool
}

func (e *jsEngine) New() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocate interpreter: %v", r)
		}
	}()
	e.vm = otto.New()
	e.fn = make(map[string]otto.Value)
	e.ready = false
	return nil
}

func (e *jsEngine) IsReady() bool {
	return e.ready
}

func (e *jsEngine) SetReady() {
	e.ready = true
}

// setupContext resolves the context's native JSON parser, used by the
// options fallback path.
func (e *jsEngine) setupContext() error {
	json, err := e.vm.Get("JSON")
	if err != nil {
		return err
	}
	if !json.IsObject() {
		return errors.New("global JSON object is missing")
	}
	parse, err := json.Object().Get("parse")
	if err != nil {
		return err
	}
	if !parse.IsFunction() {
		return errors.New("JSON.parse is not callable")
	}
	e.json = json
	e.jsonParse = parse
	return nil
}

func (e *jsEngine) ParseString(name, source string) error {
	script, err := e.vm.Compile(name, source)
	if err != nil {
		return err
	}
	_, err = e.vm.Run(script)
	return err
}

func (e *jsEngine) function(name string) (otto.Value, bool) {
	if f, ok := e.fn[name]; ok {
		return f, true
	}
	v, err := e.vm.Get(name)
	if err != nil || !v.IsFunction() {
		return otto.UndefinedValue(), false
	}
	e.fn[name] = v
	return v, true
}

func (e *jsEngine) NewObject() (*otto.Object, error) {
	return e.vm.Object(`({})`)
}

func (e *jsEngine) ParseJSON(text string) (otto.Value, error) {
	return e.jsonParse.Call(e.json, text)
}

func (e *jsEngine) Call(fn otto.Value, args ...interface{}) (otto.Value, error) {
	return fn.Call(otto.UndefinedValue(), args...)
}

func (e *jsEngine) Close() {
	e.vm = nil
	e.fn = nil
	e.ready = false
}
