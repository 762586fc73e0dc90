package version

import "testing"

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"dev", Info{Version: "dev"}, "dev"},
		{"commit truncated", Info{Version: "1.4.0", GitCommit: "abc1234def"}, "1.4.0-abc1234"},
		{"short commit", Info{Version: "1.4.0", GitCommit: "abc"}, "1.4.0-abc"},
		{"dirty", Info{Version: "1.4.0", GitCommit: "abc1234", Dirty: true}, "1.4.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet_PrefersLinkedValues(t *testing.T) {
	orig := [3]string{Version, GitCommit, BuildTime}
	defer func() { Version, GitCommit, BuildTime = orig[0], orig[1], orig[2] }()

	Version, GitCommit, BuildTime = "2.0.0", "feedbeef", "2026-03-14T09:00:00Z"
	info := Get()
	if info.Version != "2.0.0" || info.GitCommit != "feedbeef" || info.BuildTime != "2026-03-14T09:00:00Z" {
		t.Errorf("Get() = %+v", info)
	}
}
