package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STT_PROVIDER", "CHAT_RESPONSE_DELAY_MS", "METRICS_ENABLED", "VOICE_WORKERS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Port != "8080" || c.STTProvider != "none" || c.ChatResponseDelay != time.Second || !c.MetricsEnabled || c.VoiceWorkers != 2 {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STT_PROVIDER", "HTTP")
	t.Setenv("CHAT_RESPONSE_DELAY_MS", "0")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("VOICE_WORKERS", "not-a-number")
	t.Setenv("TOPIC_CACHE_TTL_SECONDS", "60")

	c := Load()
	if c.STTProvider != "http" {
		t.Errorf("provider = %q", c.STTProvider)
	}
	if c.ChatResponseDelay != 0 {
		t.Errorf("delay = %v", c.ChatResponseDelay)
	}
	if c.MetricsEnabled {
		t.Error("metrics should be disabled")
	}
	if c.VoiceWorkers != 2 {
		t.Errorf("bad int should fall back, got %d", c.VoiceWorkers)
	}
	if c.TopicCacheTTL != time.Minute {
		t.Errorf("topic ttl = %v", c.TopicCacheTTL)
	}
}
