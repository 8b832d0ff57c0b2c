//go:build !llama

package runtime

// llamaBuilt reports that this binary carries the in-process llama runtime.
const llamaBuilt = false

// Load reports the runtime as unavailable when built without the `llama` tag.
// The session and extractor layers remain fully usable against fakes.
func Load(cfg Config) (Model, error) {
	return nil, ErrUnavailable
}
