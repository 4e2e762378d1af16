package config

import "testing"

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ColorMode
		wantErr bool
	}{
		{"", ColorAuto, false},
		{"auto", ColorAuto, false},
		{"ALWAYS", ColorAlways, false},
		{" never ", ColorNever, false},
		{"on", ColorAlways, false},
		{"off", ColorNever, false},
		{"sometimes", ColorAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColorMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUseColor(t *testing.T) {
	tests := []struct {
		mode     ColorMode
		terminal bool
		want     bool
	}{
		{ColorAuto, true, true},
		{ColorAuto, false, false},
		{ColorAlways, false, true},
		{ColorNever, true, false},
	}
	for _, tt := range tests {
		cfg := Config{Color: tt.mode}
		if got := cfg.UseColor(tt.terminal); got != tt.want {
			t.Errorf("%s on terminal=%v: got %v, want %v", tt.mode, tt.terminal, got, tt.want)
		}
	}
}

func TestIndentUnit(t *testing.T) {
	if got := (Config{Indent: 2}).IndentUnit(); got != "  " {
		t.Errorf("got %q", got)
	}
	if got := (Config{Indent: 0}).IndentUnit(); got != "\t" {
		t.Errorf("got %q, want tab", got)
	}
}

func TestClamp(t *testing.T) {
	if clampIndent(-1) != DefaultIndent || clampIndent(99) != DefaultIndent || clampIndent(2) != 2 {
		t.Error("clampIndent out of range handling wrong")
	}
	if clampJobs(0) != 1 || clampJobs(8) != 8 {
		t.Error("clampJobs must keep at least one worker")
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Skipf("environment carries an invalid QUICHE_COLOR: %v", err)
	}
	if cfg.Jobs < 1 {
		t.Errorf("Jobs = %d, want >= 1", cfg.Jobs)
	}
	if cfg.Indent < 0 || cfg.Indent > maxIndent {
		t.Errorf("Indent = %d out of range", cfg.Indent)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Color != ColorAuto || cfg.Indent != DefaultIndent || cfg.Jobs != DefaultJobs || cfg.Trace {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
