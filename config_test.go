package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Lookahead: 10,
		StopTime:  1000,
		Formalism: FormalismKetVector,
	}
}

func TestConfig_Validate_AcceptsMinimalValidConfig(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Second, c.ProgressInterval)
}

func TestConfig_Validate_RejectsNonPositiveLookahead(t *testing.T) {
	c := validConfig()
	c.Lookahead = 0
	assert.ErrorIs(t, c.Validate(), ErrNonPositiveLookahead)
}

func TestConfig_Validate_RejectsNegativeStopTime(t *testing.T) {
	c := validConfig()
	c.StopTime = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidStopTime)
}

func TestConfig_Validate_RejectsUnknownFormalism(t *testing.T) {
	c := validConfig()
	c.Formalism = "not_a_real_formalism"
	assert.ErrorIs(t, c.Validate(), ErrUnknownFormalism)
}

func TestConfig_Validate_RejectsPartialQuantumManagerEndpoint(t *testing.T) {
	c := validConfig()
	c.QMIP = "10.0.0.1"
	assert.ErrorIs(t, c.Validate(), ErrQMEndpointIncomplete)

	c2 := validConfig()
	c2.QMPort = 8080
	assert.ErrorIs(t, c2.Validate(), ErrQMEndpointIncomplete)
}

func TestConfig_Validate_PreservesExplicitProgressInterval(t *testing.T) {
	c := validConfig()
	c.ProgressInterval = 5 * time.Second
	require.NoError(t, c.Validate())
	assert.Equal(t, 5*time.Second, c.ProgressInterval)
}

func TestConfig_HasQuantumManager(t *testing.T) {
	c := validConfig()
	assert.False(t, c.HasQuantumManager())

	c.QMIP, c.QMPort = "10.0.0.1", 8080
	assert.True(t, c.HasQuantumManager())
}

func TestStructuralEqual(t *testing.T) {
	a := validConfig()
	b := validConfig()
	assert.True(t, structuralEqual(a, b))

	b.Lookahead = 20
	assert.False(t, structuralEqual(a, b))

	b = validConfig()
	b.ShowProgress = true
	assert.True(t, structuralEqual(a, b), "non-structural field must not affect structural equality")
}
