package tex2typst

// Worker is a Session checked out of a Converter's registry for the lifetime
// of one goroutine's work. It bypasses the result cache.
type Worker struct {
	registry *Registry
	session  *Session
}

func (w *Worker) Tex2Typst(input string, opts *TexOptions) (string, error) {
	mapping, err := texMapping(opts)
	if err != nil {
		return "", err
	}
	return w.Invoke(FuncTex2Typst, input, mapping)
}

func (w *Worker) Typst2Tex(input string, opts *TypstOptions) (string, error) {
	return w.Invoke(FuncTypst2Tex, input, opts.Options())
}

func (w *Worker) Tex2TypstBatch(inputs []string, opts *TexOptions) ([]string, error) {
	mapping, err := texMapping(opts)
	if err != nil {
		return nil, err
	}
	return w.InvokeBatch(FuncTex2Typst, inputs, mapping)
}

func (w *Worker) Typst2TexBatch(inputs []string, opts *TypstOptions) ([]string, error) {
	return w.InvokeBatch(FuncTypst2Tex, inputs, opts.Options())
}

func (w *Worker) Invoke(function, input string, opts Options) (string, error) {
	if w.session == nil {
		return "", ErrSessionClosed
	}
	return convert(w.session, function, input, opts)
}

func (w *Worker) InvokeBatch(function string, inputs []string, opts Options) ([]string, error) {
	if w.session == nil {
		return nil, ErrSessionClosed
	}
	return convertBatch(w.session, function, inputs, opts)
}

// Close returns the session to the registry. The Worker is unusable after.
func (w *Worker) Close() {
	if w.session == nil {
		return
	}
	w.registry.Put(w.session)
	w.session = nil
}
