package videocfg

import "errors"

var (
	// ErrUnknownOption indicates a key that is not registered in the schema.
	ErrUnknownOption = errors.New("videocfg: unknown option")
	// ErrTypeMismatch indicates a value that cannot be coerced to the option kind.
	ErrTypeMismatch = errors.New("videocfg: value does not match option kind")
	// ErrInvalidOption indicates a malformed option registration.
	ErrInvalidOption = errors.New("videocfg: invalid option")
	// ErrDuplicateOption indicates the same key was registered twice.
	ErrDuplicateOption = errors.New("videocfg: option already registered")
	// ErrLayerLoad wraps failures reported by a LayerStore while reading.
	ErrLayerLoad = errors.New("videocfg: load layer")
	// ErrLayerSave wraps failures reported by a LayerStore while writing.
	ErrLayerSave = errors.New("videocfg: save layer")
	// ErrNoStore indicates an operation that needs persistence ran without a store.
	ErrNoStore = errors.New("videocfg: layer store not configured")
	// ErrNoTitle indicates a title operation ran while no title layer is applied.
	ErrNoTitle = errors.New("videocfg: no title layer applied")
	// ErrNoCapabilityProvider indicates Requery ran without a provider.
	ErrNoCapabilityProvider = errors.New("videocfg: capability provider not configured")
	// ErrEmptyCondition indicates a rule compiled from a blank condition.
	ErrEmptyCondition = errors.New("condition must not be empty")
	// ErrEngineUnavailable indicates an evaluator engine left out of the build.
	ErrEngineUnavailable = errors.New("videocfg: evaluator engine not built in")
)
