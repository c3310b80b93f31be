package version

import "testing"

func TestVersionStringParts(t *testing.T) {
	restore := func(v, c, d string) {
		Version, GitCommit, BuildDate = v, c, d
	}
	defer restore(Version, GitCommit, BuildDate)

	cases := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "0.1.0-dev"},
		{"1.2.3", "abc1234", "", "1.2.3 (abc1234)"},
		{"1.2.3", "", "2026-08-01", "1.2.3 built 2026-08-01"},
		{"1.2.3", "abc1234", "2026-08-01", "1.2.3 (abc1234) built 2026-08-01"},
	}
	for _, tc := range cases {
		restore(tc.version, tc.commit, tc.date)
		if got := VersionString(); got != tc.want {
			t.Errorf("VersionString() = %q, want %q", got, tc.want)
		}
	}
}
