//go:build !js_eval

package settings

// NewJSEvaluator returns nil unless the module is built with the js_eval tag.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}
