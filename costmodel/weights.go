package costmodel

// Encoding limits.
const (
	// MaxSlots is the number of leading parameters whose constness is tracked.
	MaxSlots = 7
	// MaxCost is the ceiling for the baseline and for every slot's savings.
	MaxCost = 0x7f
)

// Baseline weights per construct, in abstract instruction units.
const (
	weightOperator = 1
	weightLoad     = 1  // global, builtin, attribute and index reads
	weightStore    = 1  // index, attribute and global writes
	weightBranch   = 1  // if, break, continue
	weightSelect   = 2  // a if c else b
	weightLoop     = 2  // per loop construct, never foldable
	weightCall     = 3  // calls are opaque
	weightAlloc    = 2  // list, tuple and dict construction
	weightElement  = 1  // per element stored into a new collection
	weightUnpack   = 1  // destructuring into several targets
	weightClosure  = 10 // lambda and nested def
	weightUnknown  = 1
)
