package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "42")
	t.Setenv("CHANNEL_USERNAME", "@mychannel")
	for _, key := range []string{"MIN_WITHDRAWAL", "START_BONUS", "REFERRAL_BONUS", "DAILY_BONUS"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "@mychannel", cfg.ChannelUsername)
	assert.Equal(t, []int64{42}, cfg.AdminIDs)
	assert.Equal(t, int64(15), cfg.MinWithdrawal)
	assert.Equal(t, int64(3), cfg.StartBonus)
	assert.Equal(t, int64(3), cfg.ReferralBonus)
	assert.Equal(t, int64(1), cfg.DailyBonus)
}

func TestLoadConfigMissingToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BOT_TOKEN", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigChannelNormalized(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CHANNEL_USERNAME", "mychannel")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "@mychannel", cfg.ChannelUsername)
}

func TestLoadConfigAdminIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_IDS", "42, 43 ,44")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 43, 44}, cfg.AdminIDs)

	t.Setenv("ADMIN_IDS", "42,abc")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("ADMIN_IDS", "")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigBadAmounts(t *testing.T) {
	setBaseEnv(t)

	t.Setenv("MIN_WITHDRAWAL", "abc")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("MIN_WITHDRAWAL", "0")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("MIN_WITHDRAWAL", "-3")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminIDs: []int64{1, 2}}
	assert.True(t, cfg.IsAdmin(1))
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}
