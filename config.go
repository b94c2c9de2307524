package kernel

import (
	"time"
)

// Formalism names the quantum-state representation a run's entities
// expect the quantum manager to use. The kernel never interprets it
// beyond validating it against the known set; it is not sent to the
// quantum-manager endpoint.
type Formalism string

const (
	FormalismKetVector    Formalism = "ket_vector"
	FormalismDensityMatrix Formalism = "density_matrix"
	FormalismStabilizer   Formalism = "stabilizer"
	FormalismBellDiagonal Formalism = "bell_diagonal"
)

func (f Formalism) valid() bool {
	switch f {
	case FormalismKetVector, FormalismDensityMatrix, FormalismStabilizer, FormalismBellDiagonal:
		return true
	default:
		return false
	}
}

// Config is the kernel's construction-time configuration, grounded on
// the teacher's module Config structs: a plain struct with yaml/json/env
// tags so it can be loaded from whichever source SPEC_FULL.md's config
// stack prefers, validated once via Validate before a Timeline is ever
// built.
//
// Example YAML configuration:
//
//	lookahead: 5
//	stop_time: 1000000
//	formalism: ket_vector
//	qm_ip: 10.0.0.12
//	qm_port: 8765
//	show_progress: true
type Config struct {
	// Lookahead is the minimum delay (simulated-time units) a
	// ParallelTimeline guarantees before any event it schedules onto
	// another rank can be observed there; it bounds how far a
	// conservative synchronization window can safely advance without
	// risking a causality violation. Required, must be > 0.
	Lookahead int64 `yaml:"lookahead" toml:"lookahead" json:"lookahead" env:"LOOKAHEAD"`

	// StopTime is the simulated time at which Run returns, regardless of
	// remaining scheduled events. Must be >= 0.
	StopTime int64 `yaml:"stop_time" toml:"stop_time" json:"stop_time" env:"STOP_TIME"`

	// Formalism names the quantum-state representation in use for this
	// run. Required.
	Formalism Formalism `yaml:"formalism" toml:"formalism" json:"formalism" env:"FORMALISM"`

	// QMIP and QMPort address an external quantum-manager server. Both
	// must be set, or both left empty/zero — a run either owns all
	// quantum state locally (internal/quantum.NoOp) or delegates it
	// entirely to a remote server (internal/quantum.Client), never a mix.
	QMIP   string `yaml:"qm_ip" toml:"qm_ip" json:"qm_ip" env:"QM_IP"`
	QMPort int    `yaml:"qm_port" toml:"qm_port" json:"qm_port" env:"QM_PORT"`

	// ShowProgress toggles periodic progress reporting during Run.
	// Non-structural: safe to hot-reload mid-run.
	ShowProgress bool `yaml:"show_progress" toml:"show_progress" json:"show_progress" env:"SHOW_PROGRESS"`

	// ProgressInterval controls how often progress is reported when
	// ShowProgress is set. Non-structural.
	ProgressInterval time.Duration `yaml:"progress_interval" toml:"progress_interval" json:"progress_interval" env:"PROGRESS_INTERVAL"`

	// RandomSeed seeds this Timeline's RNG (rng.go). Zero means
	// "generate one from crypto/rand at construction", matching the
	// original's numpy.random.seed-on-demand behavior without requiring
	// every caller to supply one.
	RandomSeed int64 `yaml:"random_seed" toml:"random_seed" json:"random_seed" env:"RANDOM_SEED"`
}

// Validate checks Config's values and applies sensible defaults,
// matching the Validate-on-the-Config-struct convention the teacher's
// modules use rather than validating loosely scattered across
// constructors.
func (c *Config) Validate() error {
	if c.Lookahead <= 0 {
		return ErrNonPositiveLookahead
	}
	if c.StopTime < 0 {
		return ErrInvalidStopTime
	}
	if !c.Formalism.valid() {
		return ErrUnknownFormalism
	}
	if (c.QMIP == "") != (c.QMPort == 0) {
		return ErrQMEndpointIncomplete
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 1 * time.Second
	}
	return nil
}

// HasQuantumManager reports whether this Config points at a remote
// quantum-manager endpoint.
func (c *Config) HasQuantumManager() bool {
	return c.QMIP != "" && c.QMPort != 0
}

// structuralEqual reports whether two Configs agree on every field a
// running Timeline cannot safely change, used by internal/configwatch
// to reject reloads that would require re-synchronizing every rank's
// partition boundary.
func structuralEqual(a, b Config) bool {
	return a.Lookahead == b.Lookahead &&
		a.Formalism == b.Formalism &&
		a.QMIP == b.QMIP &&
		a.QMPort == b.QMPort
}
