package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sec-correlate/correlator/internal/predicate"
	"github.com/sec-correlate/correlator/internal/rule"
)

func TestDefaultConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3600*time.Second, cfg.RetentionWindow)
	assert.Equal(t, 512, cfg.MaxDecisionGraphs)
	assert.Equal(t, 500, cfg.MaxAlertsInMemory)
	assert.Equal(t, 60, cfg.DefaultWindow)
	assert.Equal(t, 0.75, cfg.DefaultConfidence)
	assert.Equal(t, 1024, cfg.InputQueueSize)
	assert.Equal(t, 5*time.Second, cfg.DrainDeadline)
	assert.Equal(t, rule.Count{Op: predicate.CmpGE, Value: 1}, cfg.DefaultCount)
}

func TestNew_OptionsOverrideDefaults(t *testing.T) {
	cfg, err := New(
		WithRetentionWindow(10*time.Minute),
		WithMaxAlertsInMemory(50),
		WithDefaultConfidence(0.5),
	)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.RetentionWindow)
	assert.Equal(t, 50, cfg.MaxAlertsInMemory)
	assert.Equal(t, 0.5, cfg.DefaultConfidence)
}

func TestNew_EnvOverridesDefaultsButOptionsWinOverEnv(t *testing.T) {
	os.Setenv("CORRELATOR_MAX_ALERTS_IN_MEMORY", "77")
	os.Setenv("CORRELATOR_SERVICE_NAME", "from-env")
	defer os.Unsetenv("CORRELATOR_MAX_ALERTS_IN_MEMORY")
	defer os.Unsetenv("CORRELATOR_SERVICE_NAME")

	cfg, err := New(WithMaxAlertsInMemory(999))
	require.NoError(t, err)
	assert.Equal(t, 999, cfg.MaxAlertsInMemory, "option must win over env")
	assert.Equal(t, "from-env", cfg.ServiceName, "env must win over the compiled-in default")
}

func TestLoadFromEnv_GenericFallbackWhenFrameworkVarUnset(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://generic:6379")
	defer os.Unsetenv("REDIS_URL")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "redis://generic:6379", cfg.RedisURL)
}

func TestLoadFromEnv_FrameworkVarWinsOverGenericFallback(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://generic:6379")
	os.Setenv("CORRELATOR_REDIS_URL", "redis://specific:6379")
	defer os.Unsetenv("REDIS_URL")
	defer os.Unsetenv("CORRELATOR_REDIS_URL")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "redis://specific:6379", cfg.RedisURL)
}

func TestLoadFromEnv_InvalidDurationIsError(t *testing.T) {
	os.Setenv("CORRELATOR_RETENTION_WINDOW", "not-a-duration")
	defer os.Unsetenv("CORRELATOR_RETENTION_WINDOW")

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestValidate_RejectsNonPositiveFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetentionWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DefaultConfidence = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxDecisionGraphs = -1
	assert.Error(t, cfg.Validate())
}

func TestWithDefaultConfidence_RejectsOutOfRange(t *testing.T) {
	_, err := New(WithDefaultConfidence(2.0))
	assert.Error(t, err)
}

func TestRuleDefaults_ProjectsCountAndWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultWindow = 120
	cfg.DefaultCount = rule.Count{Op: predicate.CmpGT, Value: 3}

	d := cfg.RuleDefaults()
	assert.Equal(t, 120, d.Window)
	assert.Equal(t, rule.Count{Op: predicate.CmpGT, Value: 3}, d.Count)
}
