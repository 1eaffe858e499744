package model

import "testing"

func TestIntentionString(t *testing.T) {
	tests := []struct {
		intention Intention
		want      string
	}{
		{IntentionIdle, "IDLE"},
		{IntentionAttack, "ATTACK"},
		{IntentionCast, "CAST"},
		{IntentionFollow, "FOLLOW"},
		{Intention(200), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.intention.String(); got != tt.want {
				t.Errorf("Intention.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
