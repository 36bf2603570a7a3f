package lvm

import "testing"

func TestParseLVAttrOpenBoundaryCases(t *testing.T) {
	cases := []struct {
		attr    string
		want    bool
		wantErr bool
	}{
		{"-wi-a-----", false, false},
		{"owi-aos---", true, false},
		{"swi-as----", false, true}, // 's' at column 6 (the boundary case spec.md calls out) is neither '-' nor 'o'
	}

	for _, c := range cases {
		got, err := parseLVAttrOpen("test-lv", c.attr)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseLVAttrOpen(%q): expected error, got none", c.attr)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLVAttrOpen(%q): unexpected error: %v", c.attr, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseLVAttrOpen(%q) = %v, want %v", c.attr, got, c.want)
		}
	}
}
