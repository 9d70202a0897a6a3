package task

// Config is the per-node configuration object. Defaults are applied once at
// the composition root (see Engine Options) and cloned into every node at
// construction; there is no ambient global lookup.
type Config struct {
	// ForceRerun makes the first completion check delete the node's
	// existing outputs and report incomplete.
	ForceRerun bool
	// StrictCheck additionally requires all dependency nodes to be
	// complete and all input references to exist.
	StrictCheck bool
	// ModificationTimeCheck additionally requires every input to be
	// modified no later than every output, shared paths excluded.
	ModificationTimeCheck bool
	// CodeFingerprintCheck appends the node's declared code fingerprint to
	// its identity tuple.
	CodeFingerprintCheck bool
	// CacheIdentity memoizes the identity for the instance's lifetime.
	CacheIdentity bool
	// Significant controls whether this node contributes to the identity
	// of nodes depending on it.
	Significant bool
	// AuxiliaryWrites enables the lifecycle bookkeeping records
	// (parameters, random seed, processing time, execution log).
	AuxiliaryWrites bool
	// LockAtDump guards output writes with the lock coordinator. Ignored
	// while LockAtRun holds the lock around the whole execution.
	LockAtDump bool
	// LockAtRun guards the node's execution with the lock coordinator.
	// Requires a configured lock backend.
	LockAtRun bool
	// RejectEmptyDump fails a dump of the empty sentinel.
	RejectEmptyDump bool
	// FixedSeed overrides the identity-derived random seed.
	FixedSeed *int64
}

// DefaultConfig returns the recognized option defaults.
func DefaultConfig() *Config {
	return &Config{
		CacheIdentity:   true,
		Significant:     true,
		AuxiliaryWrites: true,
		LockAtDump:      true,
	}
}

func (c *Config) clone() *Config {
	out := *c
	return &out
}

// CloneConfig copies cfg for a derived node, resetting the force-rerun,
// strict-check and modification-time-check flags.
func CloneConfig(c *Config) *Config {
	out := c.clone()
	out.ForceRerun = false
	out.StrictCheck = false
	out.ModificationTimeCheck = false
	return out
}

// Option adjusts a node's configuration at construction time.
type Option func(*Config)

// WithConfig replaces the node's configuration with a copy of cfg, usually
// the engine-level defaults from the composition root.
func WithConfig(cfg *Config) Option {
	return func(c *Config) {
		*c = *cfg.clone()
	}
}

func ForceRerun() Option {
	return func(c *Config) {
		c.ForceRerun = true
	}
}

func StrictCheck() Option {
	return func(c *Config) {
		c.StrictCheck = true
	}
}

func ModificationTimeCheck() Option {
	return func(c *Config) {
		c.ModificationTimeCheck = true
	}
}

func CodeFingerprintCheck() Option {
	return func(c *Config) {
		c.CodeFingerprintCheck = true
	}
}

// InsignificantNode excludes the node from downstream identity computation.
func InsignificantNode() Option {
	return func(c *Config) {
		c.Significant = false
	}
}

func NoIdentityCache() Option {
	return func(c *Config) {
		c.CacheIdentity = false
	}
}

func NoAuxiliaryWrites() Option {
	return func(c *Config) {
		c.AuxiliaryWrites = false
	}
}

func NoLockAtDump() Option {
	return func(c *Config) {
		c.LockAtDump = false
	}
}

func LockAtRun() Option {
	return func(c *Config) {
		c.LockAtRun = true
	}
}

func RejectEmptyDump() Option {
	return func(c *Config) {
		c.RejectEmptyDump = true
	}
}

func FixedSeed(seed int64) Option {
	return func(c *Config) {
		c.FixedSeed = &seed
	}
}
