package handler

import (
	"encoding/json"
	"testing"
)

// TestFlexInt_Unmarshal は数値と数値文字列の両対応を検証する。
func TestFlexInt_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "数値", input: `42`, want: 42},
		{name: "数値文字列", input: `"17"`, want: 17},
		{name: "空白入り文字列", input: `" 8 "`, want: 8},
		{name: "空文字列は無視", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "非数値文字列", input: `"abc"`, wantErr: true},
		{name: "真偽値", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexInt
			err := json.Unmarshal([]byte(tt.input), &f)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if int(f) != tt.want {
				t.Errorf("value = %d, want %d", int(f), tt.want)
			}
		})
	}
}

// TestFlexStringList_Unmarshal は単一文字列と配列の両対応を検証する。
func TestFlexStringList_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "配列", input: `["current","night"]`, want: []string{"current", "night"}},
		{name: "単一文字列", input: `"current"`, want: []string{"current"}},
		{name: "空配列", input: `[]`, want: []string{}},
		{name: "null", input: `null`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexStringList
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if len(f) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(f), len(tt.want))
			}
			for i := range tt.want {
				if f[i] != tt.want[i] {
					t.Errorf("f[%d] = %q, want %q", i, f[i], tt.want[i])
				}
			}
		})
	}
}
