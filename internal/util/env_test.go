package util

import (
	"testing"
	"time"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("KBSIM_TEST_VALUE", "")
	if got := EnvOrDefault("KBSIM_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("empty value = %q, want fallback", got)
	}
	t.Setenv("KBSIM_TEST_VALUE", "set")
	if got := EnvOrDefault("KBSIM_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("value = %q, want set", got)
	}
}

func TestEnvDuration(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"soon", 5 * time.Second},
		{"-1s", 5 * time.Second},
	}
	for _, tc := range cases {
		t.Setenv("KBSIM_TEST_TIMEOUT", tc.value)
		if got := EnvDuration("KBSIM_TEST_TIMEOUT", 5*time.Second); got != tc.want {
			t.Fatalf("EnvDuration(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
