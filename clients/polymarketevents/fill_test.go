package polymarketevents

import (
	"encoding/json"
	"testing"
)

func TestFillMentions(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  bool
	}{
		{"trade as maker", `{"event_type":"trade","maker":"` + subject + `"}`, true},
		{"fill as taker_address", `{"event":"fill","taker_address":"0x1111111111111111111111111111111111111111"}`, true},
		{"type fill as taker", `{"type":"fill","taker":"0x1111111111111111111111111111111111111111"}`, true},
		{"nested payload", `{"payload":{"event":"fill","maker_address":"` + subject + `"}}`, true},
		{"other wallet", `{"event_type":"trade","maker":"0x2222222222222222222222222222222222222222"}`, false},
		{"not a fill", `{"event_type":"book","maker":"` + subject + `"}`, false},
		{"not an object", `[1,2]`, false},
		{"garbage", `{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FillMentions(json.RawMessage(tt.frame), subject); got != tt.want {
				t.Errorf("FillMentions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFillMentions_EmptyAddress(t *testing.T) {
	if FillMentions(json.RawMessage(`{"event_type":"trade","maker":""}`), "") {
		t.Error("empty address must never match")
	}
}
