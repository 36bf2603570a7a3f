package cleaner

import "testing"

func TestSessionHost(t *testing.T) {
	cases := []struct {
		session  string
		wantHost string
		wantOK   bool
	}{
		{"iqn.1994-05.com.example:client1_2024-05-01_10-00-00", "client1", true},
		{"iqn.1994-05.com.example:lab-host-7_2024-12-31_23-59-59", "lab-host-7", true},
		{"garbage-no-colon", "", false},
		{"iqn.x:host_not-a-date", "", false},
	}

	for _, c := range cases {
		host, ok := SessionHost(c.session)
		if ok != c.wantOK {
			t.Errorf("SessionHost(%q) ok = %v, want %v", c.session, ok, c.wantOK)
			continue
		}
		if ok && host != c.wantHost {
			t.Errorf("SessionHost(%q) = %q, want %q", c.session, host, c.wantHost)
		}
	}
}
