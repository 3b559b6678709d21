//go:build !js_eval

package videocfg

// NewJSEvaluator returns nil in builds without the js_eval tag. Use
// NewEvaluator(EngineJS) to get an error instead.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return false
}
